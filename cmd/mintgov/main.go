// Command mintgov runs and administers a stablecoin governance node.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		return runServe(nil, stdout, stderr)
	}

	switch args[1] {
	case "serve", "server":
		return runServe(args[2:], stdout, stderr)
	case "validate-config", "validate":
		return runValidate(args[2:], stdout, stderr)
	case "status":
		return runStatus(args[2:], stdout, stderr)
	case "token":
		return runToken(args[2:], stdout, stderr)
	case "health":
		return runHealth(args[2:], stdout, stderr)
	case "demo":
		return runDemo(args[2:], stdout, stderr)
	case "version", "--version":
		_, _ = fmt.Fprintf(stdout, "mintgov %s\n", version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		if strings.HasPrefix(args[1], "-") {
			return runServe(args[1:], stdout, stderr)
		}
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintf(w, "mintgov %s\n\n", version)
	_, _ = fmt.Fprintln(w, "USAGE:")
	_, _ = fmt.Fprintln(w, "  mintgov <command> [flags]")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "COMMANDS:")
	printCommand(w, "serve", "Run the governance node (default)")
	printCommand(w, "validate-config", "Check a deployment file (-f)")
	printCommand(w, "status", "Show the latest stored snapshot")
	printCommand(w, "token", "Issue an operator token (-sub, -addr, -roles, -ttl)")
	printCommand(w, "health", "Check a running node (-url)")
	printCommand(w, "demo", "Walk through a governed mint in memory")
	printCommand(w, "version", "Show version information")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Settings are read from the environment: PORT, LOG_LEVEL, LOG_FORMAT,")
	_, _ = fmt.Fprintln(w, "STORE_DRIVER, DATABASE_URL, REDIS_ADDR, DEPLOYMENT_FILE, JWT_SECRET,")
	_, _ = fmt.Fprintln(w, "OTLP_ENDPOINT, ARCHIVE_URL, CORS_ALLOWED_ORIGINS, RATE_LIMIT_RPM.")
}

func printCommand(w io.Writer, name, desc string) {
	_, _ = fmt.Fprintf(w, "  %-16s %s\n", name, desc)
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
