package output

import (
	"io"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/pkg/errors"
)

// Compile builds the R1CS of the output circuit over BLS12-377.
func Compile() (constraint.ConstraintSystem, error) {
	var circuit Circuit
	ccs, err := frontend.Compile(ecc.BLS12_377.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, errors.Wrap(err, "circuit compilation failed")
	}
	return ccs, nil
}

// Setup runs the circuit-specific Groth16 setup. The toxic waste is sampled
// and discarded inside groth16.Setup; only the key pair leaves this call.
func Setup(ccs constraint.ConstraintSystem) (groth16.ProvingKey, groth16.VerifyingKey, error) {
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, errors.Wrap(err, "groth16 setup failed")
	}
	return pk, vk, nil
}

// SaveProvingKey saves a Groth16 proving key to disk.
func SaveProvingKey(path string, pk groth16.ProvingKey) error {
	return writeKeyFile(path, pk)
}

// SaveVerifyingKey saves a Groth16 verifying key to disk.
func SaveVerifyingKey(path string, vk groth16.VerifyingKey) error {
	return writeKeyFile(path, vk)
}

// writeKeyFile writes to a temporary file in the same directory and renames
// it over path, so path holds either nothing or a complete key.
func writeKeyFile(path string, key io.WriterTo) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := key.WriteTo(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "write %s", path)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "sync %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "close %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "publish %s", path)
	}
	return nil
}

// LoadProvingKey loads a Groth16 proving key from disk.
func LoadProvingKey(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BLS12_377)
	if _, err = pk.ReadFrom(f); err != nil {
		return nil, errors.Wrapf(err, "read proving key %s", path)
	}
	return pk, nil
}

// LoadVerifyingKey loads a Groth16 verifying key from disk.
func LoadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BLS12_377)
	if _, err = vk.ReadFrom(f); err != nil {
		return nil, errors.Wrapf(err, "read verifying key %s", path)
	}
	return vk, nil
}

// SetupOrLoadKeys loads the key pair when both files exist; otherwise it runs
// setup and saves the result. generated reports which path was taken.
func SetupOrLoadKeys(ccs constraint.ConstraintSystem, pkPath, vkPath string) (pk groth16.ProvingKey, vk groth16.VerifyingKey, generated bool, err error) {
	pk, pkErr := LoadProvingKey(pkPath)
	vk, vkErr := LoadVerifyingKey(vkPath)
	if pkErr == nil && vkErr == nil {
		return pk, vk, false, nil
	}
	// never overwrite half of a published pair
	if !os.IsNotExist(errors.Cause(pkErr)) || !os.IsNotExist(errors.Cause(vkErr)) {
		if pkErr == nil {
			pkErr = vkErr
		}
		return nil, nil, false, errors.Wrap(pkErr, "incomplete key pair on disk")
	}

	pk, vk, err = Setup(ccs)
	if err != nil {
		return nil, nil, false, err
	}
	for _, p := range []string{pkPath, vkPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, nil, false, errors.Wrap(err, "create key directory")
		}
	}
	if err := SaveProvingKey(pkPath, pk); err != nil {
		return nil, nil, false, errors.Wrap(err, "save proving key")
	}
	if err := SaveVerifyingKey(vkPath, vk); err != nil {
		return nil, nil, false, errors.Wrap(err, "save verifying key")
	}
	return pk, vk, true, nil
}
