// Copyright (c) 2022 individual contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// <https://www.apache.org/licenses/LICENSE-2.0>
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command bootctl prints the testsigning and nointegritychecks boot flags
// without changing them.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/appkins-org/go-testmode/internal/bcd"
	"github.com/appkins-org/go-testmode/internal/command"
	"github.com/appkins-org/go-testmode/internal/config"
	"github.com/appkins-org/go-testmode/internal/console"
)

func main() {
	fs := config.NewFlagSet("bootctl")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	cfg, err := config.NewConfig(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer cfg.Close()

	runner := &command.Exec{Log: cfg.Log}
	store := bcd.NewBcdedit(cfg.BcdeditPath, runner, bcd.NewParser(cfg.TruthyTokens), cfg.Log)

	if err := status(context.Background(), store, os.Stdout); err != nil {
		console.New(os.Stderr, os.Stdin).Error("%v", err)
		cfg.Log.Error(err, "bootctl failed")
		cfg.Close()
		os.Exit(1)
	}
}

func status(ctx context.Context, store bcd.Store, w io.Writer) error {
	s, err := store.Query(ctx)
	if err != nil {
		return err
	}

	out := console.New(w, nil)
	out.Info("Current BCD flags")
	for _, f := range bcd.Flags {
		out.Field(f.String(), bcd.OnOff(s.Get(f)))
	}

	switch s {
	case bcd.Enable.Target():
		out.OK("Test-signing mode is enabled.")
	case bcd.Disable.Target():
		out.OK("Driver signature enforcement is active.")
	default:
		out.Warn("Flags are mixed; run testmode to reconcile them.")
	}
	return nil
}
