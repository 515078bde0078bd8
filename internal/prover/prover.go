// Package prover runs output proofs behind a bounded worker pool.
//
// A Service holds the compiled circuit and the Groth16 key pair by shared
// reference; none of them is mutated after construction. Proving is
// CPU bound and admitted through a weighted semaphore sized to the available
// cores. Verification takes no lock.
package prover

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"shieldnote/internal/kinds"
	"shieldnote/internal/metrics"
	"shieldnote/internal/note"
	"shieldnote/internal/transactions/output"
)

// Service proves and verifies output statements.
type Service struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey

	slots    int64
	sem      *semaphore.Weighted
	inFlight atomic.Int64
	log      zerolog.Logger
	metrics  *metrics.Collector
}

// Option customizes a Service.
type Option func(*Service)

// WithConcurrency bounds simultaneous Prove calls. n < 1 is ignored.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.slots = int64(n)
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) { s.metrics = m }
}

// New wraps an existing circuit and key pair.
func New(ccs constraint.ConstraintSystem, pk groth16.ProvingKey, vk groth16.VerifyingKey, opts ...Option) *Service {
	s := &Service{
		ccs:     ccs,
		pk:      pk,
		vk:      vk,
		slots:   int64(runtime.NumCPU()),
		log:     zerolog.Nop(),
		metrics: metrics.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sem = semaphore.NewWeighted(s.slots)
	s.log = s.log.With().Str("component", "prover").Logger()
	return s
}

// Open compiles the circuit and loads the key pair from disk, running the
// setup ceremony when neither key file exists yet.
func Open(pkPath, vkPath string, opts ...Option) (*Service, bool, error) {
	s := New(nil, nil, nil, opts...)

	start := time.Now()
	ccs, err := output.Compile()
	if err != nil {
		return nil, false, err
	}
	s.metrics.RecordCircuitCompile(time.Since(start))
	s.log.Debug().Int("constraints", ccs.GetNbConstraints()).Msg("circuit compiled")

	start = time.Now()
	pk, vk, generated, err := output.SetupOrLoadKeys(ccs, pkPath, vkPath)
	if err != nil {
		return nil, false, err
	}
	if generated {
		s.metrics.RecordSetup(time.Since(start))
		s.log.Info().Str("pk", pkPath).Str("vk", vkPath).Msg("setup ceremony complete")
	} else {
		s.log.Debug().Str("pk", pkPath).Str("vk", vkPath).Msg("keys loaded")
	}
	s.ccs, s.pk, s.vk = ccs, pk, vk
	return s, generated, nil
}

// VerifyingKey returns the shared verifying key.
func (s *Service) VerifyingKey() groth16.VerifyingKey { return s.vk }

// Metrics returns the collector the service records into.
func (s *Service) Metrics() *metrics.Collector { return s.metrics }

// Prove waits for a free slot, or for ctx to end, then proves that n opens cm.
func (s *Service) Prove(ctx context.Context, cm note.Commitment, n *note.Note) (output.Proof, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return output.Proof{}, errors.Wrap(err, "waiting for a proving slot")
	}
	defer s.sem.Release(1)
	return s.prove(cm, n)
}

// TryProve proves without waiting; a saturated pool yields kinds.ErrBusy.
func (s *Service) TryProve(cm note.Commitment, n *note.Note) (output.Proof, error) {
	if !s.sem.TryAcquire(1) {
		s.metrics.RecordBusy()
		return output.Proof{}, kinds.ErrBusy
	}
	defer s.sem.Release(1)
	return s.prove(cm, n)
}

// prove runs with a slot held.
func (s *Service) prove(cm note.Commitment, n *note.Note) (output.Proof, error) {
	s.metrics.SetGauge(metrics.MetricProversInFlight, float64(s.inFlight.Add(1)), nil)
	defer func() {
		s.metrics.SetGauge(metrics.MetricProversInFlight, float64(s.inFlight.Add(-1)), nil)
	}()

	start := time.Now()
	proof, err := output.Prove(s.ccs, s.pk, cm, n)
	if err != nil {
		s.metrics.RecordError("prove")
		s.log.Warn().Err(err).Str("commitment", cm.String()).Msg("proof generation failed")
		return output.Proof{}, err
	}
	d := time.Since(start)
	s.metrics.RecordProof(d)
	s.log.Debug().Str("commitment", cm.String()).Dur("took", d).Msg("proof generated")
	return proof, nil
}

// Verify checks one proof. It never blocks on provers.
func (s *Service) Verify(cm note.Commitment, proof output.Proof) error {
	start := time.Now()
	err := output.Verify(s.vk, cm, proof)
	s.metrics.RecordVerification(err == nil, time.Since(start))
	if err != nil {
		s.log.Debug().Err(err).Str("commitment", cm.String()).Msg("proof rejected")
	}
	return err
}

// VerifyBytes parses and verifies raw buffers.
func (s *Service) VerifyBytes(commitment, proof []byte) error {
	cm, err := note.CommitmentFromBytes(commitment)
	if err != nil {
		return err
	}
	p, err := output.ProofFromBytes(proof)
	if err != nil {
		return err
	}
	return s.Verify(cm, p)
}

// Statement is one commitment and the proof claimed for it.
type Statement struct {
	Commitment note.Commitment
	Proof      output.Proof
}

// VerifyBatch verifies statements concurrently. results[i] is the outcome of
// statements[i]; err is only set when ctx ends first.
func (s *Service) VerifyBatch(ctx context.Context, statements []Statement) (results []error, err error) {
	results = make([]error, len(statements))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(int(s.slots))
	for i := range statements {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.Verify(statements[i].Commitment, statements[i].Proof)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
