// main.go - notectl, a command line host for shielded payment notes.
//
// Every subcommand takes hex on the command line and prints one JSON document
// on stdout. Failures are reported on stderr and mapped to an exit code by
// error kind, so scripts can tell a bad key from a rejected proof.
//
// Usage:
//   notectl keygen
//   notectl address --phrase "..." --index 3
//   notectl note --creditor <hex> --amount 30 --asset 1
//   notectl prove --creditor <hex> --amount 30 --asset 1 --rseed <hex>
//   notectl prove --note <hex>
//   notectl verify --commitment <hex> --proof <hex>
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/pkg/errors"
	"lukechampine.com/frand"

	"shieldnote/internal/kinds"
	"shieldnote/internal/logging"
	"shieldnote/internal/metrics"
	"shieldnote/internal/prover"
)

const version = "0.3.0"

// Exit codes. Kinds not listed here exit with exitFailure.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitBusy    = 75
)

var exitCodes = map[error]int{
	kinds.ErrInvalidSeed:        10,
	kinds.ErrInvalidKey:         11,
	kinds.ErrInvalidNote:        12,
	kinds.ErrInvalidSignature:   13,
	kinds.ErrSerialization:      14,
	kinds.ErrProofGeneration:    15,
	kinds.ErrVerificationFailed: 16,
	kinds.ErrBusy:               exitBusy,
}

type args struct {
	Config  string `arg:"--config,env:NOTECTL_CONFIG" default:"notectl.json" help:"JSON configuration file, created with defaults when missing"`
	Metrics bool   `arg:"--metrics" help:"print collected metrics to stderr on exit"`

	Keygen    *keygenCmd    `arg:"subcommand:keygen" help:"generate a seed phrase and derive its keys"`
	Address   *addressCmd   `arg:"subcommand:address" help:"derive a payment address"`
	Note      *noteCmd      `arg:"subcommand:note" help:"build a note and print its commitment"`
	Sign      *signCmd      `arg:"subcommand:sign" help:"sign a message under a randomized spend key"`
	VerifySig *verifySigCmd `arg:"subcommand:verify-sig" help:"check a spend authorization signature"`
	Setup     *setupCmd     `arg:"subcommand:setup" help:"run or load the output circuit setup"`
	Prove     *proveCmd     `arg:"subcommand:prove" help:"prove a note opens its commitment"`
	Verify    *verifyCmd    `arg:"subcommand:verify" help:"verify an output proof"`
	Health    *healthCmd    `arg:"subcommand:health" help:"run self checks"`
}

func (args) Version() string {
	return "notectl " + version
}

func (args) Description() string {
	return "notectl derives shielded addresses, commits to notes, signs spends and proves outputs.\n"
}

// command is implemented by every subcommand. The returned value is printed as JSON.
type command interface {
	run(ctx context.Context, a *app) (interface{}, error)
}

// app carries what commands share. The prover is opened on first use.
type app struct {
	cfg     *Config
	log     *logging.Logger
	metrics *metrics.Collector
	rng     io.Reader

	service   *prover.Service
	generated bool
}

func (a *app) prover() (*prover.Service, error) {
	if a.service != nil {
		return a.service, nil
	}
	s, generated, err := prover.Open(a.cfg.ProvingKey(), a.cfg.VerifyingKey(),
		prover.WithConcurrency(a.cfg.MaxConcurrency),
		prover.WithLogger(a.log.Logger),
		prover.WithMetrics(a.metrics),
	)
	if err != nil {
		return nil, err
	}
	event := "keys_loaded"
	if generated {
		event = "setup_completed"
	}
	a.log.Audit(event, map[string]interface{}{
		"proving_key":   a.cfg.ProvingKey(),
		"verifying_key": a.cfg.VerifyingKey(),
	})
	a.service, a.generated = s, generated
	return s, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one invocation and returns the process exit code.
func run(argv []string, stdout, stderr io.Writer) int {
	var cli args
	p, err := arg.NewParser(arg.Config{Program: "notectl", Exit: func(int) {}, Out: stderr}, &cli)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	switch err := p.Parse(argv); {
	case err == arg.ErrHelp:
		p.WriteHelpForSubcommand(stdout, p.SubcommandNames()...)
		return exitOK
	case err == arg.ErrVersion:
		fmt.Fprintln(stdout, cli.Version())
		return exitOK
	case err != nil:
		p.WriteUsage(stderr)
		fmt.Fprintln(stderr, "error:", err)
		return exitUsage
	}
	cmd, ok := p.Subcommand().(command)
	if !ok {
		p.WriteUsage(stderr)
		return exitUsage
	}

	cfg, err := LoadConfig(cli.Config)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitFailure
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, "error: invalid configuration:", err)
		return exitFailure
	}

	log, err := logging.New(logging.Options{
		Level:     cfg.LogLevel,
		File:      cfg.LogFile,
		AuditFile: cfg.AuditFile(),
		Console:   stderr,
		Gnark:     cfg.GnarkLogs,
	})
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitFailure
	}
	defer log.Close()

	a := &app{cfg: cfg, log: log, metrics: metrics.New(), rng: frand.Reader}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	name := p.SubcommandNames()[0]
	log.Debug().Str("command", name).Msg("running")
	result, err := cmd.run(ctx, a)
	if cli.Metrics {
		printJSON(stderr, a.metrics.Summary())
	}
	if result != nil {
		if perr := printJSON(stdout, result); perr != nil && err == nil {
			err = perr
		}
	}
	if err != nil {
		code := exitCode(err)
		if kinds.Transient(err) {
			log.Warn().Err(err).Str("command", name).Msg("retry later")
		} else {
			log.Error().Err(err).Str("command", name).Int("exit", code).Msg("command failed")
		}
		fmt.Fprintln(stderr, "error:", err)
		return code
	}
	return exitOK
}

func exitCode(err error) int {
	if code, ok := exitCodes[kinds.Of(err)]; ok {
		return code
	}
	return exitFailure
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encode output")
}
