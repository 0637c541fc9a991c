// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Command emissions-agent analyzes organizational greenhouse gas emissions
// with a crew of LLM agents.
//
// Usage:
//
//	emissions-agent run
//	emissions-agent questions
//	emissions-agent ask "Which suppliers should I prioritise?" -n 5
//	emissions-agent train 3 training.json
//	emissions-agent test 2 gpt-4o
//	emissions-agent replay <task-id>
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/emissions-agent/pkg/config"
)

var (
	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin
)

// CLI defines the command-line interface.
type CLI struct {
	Version   VersionCmd   `cmd:"" help:"Show version information."`
	Run       RunCmd       `cmd:"" help:"Run comprehensive analysis with all questions in one crew."`
	Questions QuestionsCmd `cmd:"" help:"Run all questions individually and save separate reports."`
	Ask       AskCmd       `cmd:"" help:"Ask a single question."`
	Train     TrainCmd     `cmd:"" help:"Train the crew."`
	Test      TestCmd      `cmd:"" help:"Test the crew."`
	Replay    ReplayCmd    `cmd:"" help:"Replay crew execution from a task."`
	LogTasks  LogTasksCmd  `cmd:"" name:"log-tasks" help:"List the task ids of the latest run."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	DataDir   string `name:"data-dir" help:"Directory holding the emissions CSV files and PDFs." type:"path"`
	Guidance  string `help:"Training file whose feedback is applied to task prompts." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose, or json)."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Fprintf(stdout, "emissions-agent version %s\n", version)
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			slog.Info("Shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func main() {
	_ = config.LoadDotEnv()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("emissions-agent"),
		kong.Description("Emissions Agent - AI-powered emissions analysis"),
		kong.UsageOnError(),
	)

	cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
