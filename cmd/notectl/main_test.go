package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

var zeroPhrase = strings.Repeat("abandon ", 23) + "art"

const (
	zeroAddress0 = "98486f1163f2585b929af91dcbccdb7e413967b11e2916ab72f7601671cb6ebe5313410a32ce38d2fa0a84f29b76370d2f3ad12edb1225ccfeaf34343d646d688b7ca1bd59234f5fd5a5ac9a3f2c6701"
	zeroAddress1 = "4aa5ca4e0a70a550ee36832daf456628c7e3bcc376fc428a0ad0fde91bc0df80baa18d580a8e482f81f399138973338d43c43fe22e89a39fcaab495537b4690130e5dc5663dfde95a90c9854c71f758b"
	zeroRseed    = "0000000000000000000000000000000000000000000000000000000000000000"
)

// testConfig writes a configuration rooted in a temporary directory.
func testConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.KeyDir = filepath.Join(dir, "keys")
	cfg.AuditLogPath = filepath.Join(dir, "audit.log")
	cfg.LogLevel = "error"
	path := filepath.Join(dir, "notectl.json")
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatal(err)
	}
	return path
}

// invoke runs notectl and decodes its JSON output into out when non-nil.
func invoke(t *testing.T, config string, out interface{}, argv ...string) int {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--config", config}, argv...), &stdout, &stderr)
	if code == exitOK && out != nil {
		if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
			t.Fatalf("%s: bad JSON output %q: %v", argv[0], stdout.String(), err)
		}
	}
	if code != exitOK {
		t.Logf("%s exited %d: %s", argv[0], code, stderr.String())
	}
	return code
}

func TestKeysAndNotes(t *testing.T) {
	config := testConfig(t)

	var keys keygenResult
	if code := invoke(t, config, &keys, "keygen", "--phrase", zeroPhrase); code != exitOK {
		t.Fatalf("keygen exited %d", code)
	}
	if keys.Address != zeroAddress0 {
		t.Errorf("keygen address = %s", keys.Address)
	}
	if keys.Phrase != "" {
		t.Error("keygen echoed a phrase it was given")
	}

	t.Run("fresh keygen", func(t *testing.T) {
		var fresh keygenResult
		if code := invoke(t, config, &fresh, "keygen"); code != exitOK {
			t.Fatalf("exit %d", code)
		}
		if len(strings.Fields(fresh.Phrase)) != 24 {
			t.Errorf("expected a 24-word phrase, got %q", fresh.Phrase)
		}
	})

	t.Run("address from viewing key", func(t *testing.T) {
		var addr addressResult
		if code := invoke(t, config, &addr, "address", "--fvk", keys.FullViewingKey, "--index", "1"); code != exitOK {
			t.Fatalf("exit %d", code)
		}
		if addr.Address != zeroAddress1 {
			t.Errorf("address 1 = %s", addr.Address)
		}
	})

	t.Run("note commitment", func(t *testing.T) {
		var n NoteResult
		code := invoke(t, config, &n, "note", "--creditor", zeroAddress0, "--amount", "30", "--asset", "1", "--rseed", zeroRseed)
		if code != exitOK {
			t.Fatalf("exit %d", code)
		}
		if n.Commitment != "0cbe2d28552aca9ec9c3df0ec6c5cae67bc55e300f386fee6f658b4c9a9def17" {
			t.Errorf("commitment = %s", n.Commitment)
		}

		var again NoteResult
		if code := invoke(t, config, &again, "note", "--note", n.Note); code != exitOK {
			t.Fatalf("note --note exit %d", code)
		}
		if again != n {
			t.Errorf("re-reading the encoded note changed it: %+v", again)
		}
	})

	t.Run("sign and verify", func(t *testing.T) {
		var n NoteResult
		if code := invoke(t, config, &n, "note", "--creditor", zeroAddress1, "--debtor", zeroAddress0, "--amount", "5"); code != exitOK {
			t.Fatalf("note exit %d", code)
		}
		var sig signResult
		if code := invoke(t, config, &sig, "sign", "--phrase", zeroPhrase, "--commitment", n.Commitment); code != exitOK {
			t.Fatalf("sign exit %d", code)
		}
		if code := invoke(t, config, nil, "verify-sig", "--vk", sig.VerificationKey, "--message", n.Commitment, "--signature", sig.Signature); code != exitOK {
			t.Fatalf("verify-sig exit %d", code)
		}
		other := n.Commitment + "00"
		if code := invoke(t, config, nil, "verify-sig", "--vk", sig.VerificationKey, "--message", other, "--signature", sig.Signature); code != 16 {
			t.Errorf("tampered message: exit %d, want 16", code)
		}
		if code := invoke(t, config, nil, "verify-sig", "--vk", sig.VerificationKey, "--message", n.Commitment, "--signature", "00"); code != 13 {
			t.Errorf("malformed signature: exit %d, want 13", code)
		}
	})

	t.Run("error kinds map to exit codes", func(t *testing.T) {
		cases := []struct {
			name string
			argv []string
			want int
		}{
			{"bad phrase", []string{"keygen", "--phrase", "not a phrase"}, 10},
			{"bad viewing key", []string{"address", "--fvk", "00"}, 11},
			{"bad creditor", []string{"note", "--creditor", "abcd", "--amount", "1"}, 12},
			{"short signature", []string{"verify-sig", "--vk", keys.SpendVerificationKey, "--message", "00", "--signature", "00"}, 13},
			{"short rseed", []string{"note", "--creditor", zeroAddress0, "--amount", "1", "--rseed", "00"}, 14},
			{"missing creditor", []string{"note", "--amount", "1"}, 12},
			{"short note", []string{"note", "--note", "00"}, 14},
			{"missing flag", []string{"verify-sig", "--message", "00", "--signature", "00"}, exitUsage},
			{"unknown command", []string{"frobnicate"}, exitUsage},
		}
		for _, c := range cases {
			if got := invoke(t, config, nil, c.argv...); got != c.want {
				t.Errorf("%s: exit %d, want %d", c.name, got, c.want)
			}
		}
	})
}

func TestHelpAndVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--version"}, &stdout, &stderr); code != exitOK {
		t.Fatalf("--version exited %d", code)
	}
	if !strings.Contains(stdout.String(), version) {
		t.Errorf("version output %q", stdout.String())
	}
	stdout.Reset()
	if code := run([]string{"--help"}, &stdout, &stderr); code != exitOK {
		t.Fatalf("--help exited %d", code)
	}
	if !strings.Contains(stdout.String(), "verify-sig") {
		t.Errorf("help does not list subcommands: %q", stdout.String())
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	config := testConfig(t)
	t.Setenv("NOTECTL_LOG_LEVEL", "chatty")
	if code := invoke(t, config, nil, "keygen", "--phrase", zeroPhrase); code != exitFailure {
		t.Errorf("invalid log level from the environment: exit %d", code)
	}
	t.Setenv("NOTECTL_LOG_LEVEL", "error")
	t.Setenv("NOTECTL_PHRASE", zeroPhrase)
	var keys keygenResult
	if code := invoke(t, config, &keys, "keygen"); code != exitOK {
		t.Fatalf("exit %d", code)
	}
	if keys.Address != zeroAddress0 {
		t.Errorf("phrase from the environment ignored: %s", keys.Address)
	}
}

func TestHealth(t *testing.T) {
	config := testConfig(t)
	var res struct {
		Status string        `json:"status"`
		Data   *SystemHealth `json:"data"`
	}
	if code := invoke(t, config, &res, "health"); code != exitOK {
		t.Fatalf("health exited %d", code)
	}
	// no keys yet
	if res.Data.OverallStatus != Degraded {
		t.Errorf("status = %s", res.Data.OverallStatus)
	}
	for _, c := range res.Data.Components {
		if c.Name != "keys" && c.Status != Healthy {
			t.Errorf("%s: %s (%s)", c.Name, c.Status, c.Message)
		}
	}
}

func TestProveAndVerify(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup skipped in short mode")
	}
	config := testConfig(t)

	var setup setupResult
	if code := invoke(t, config, &setup, "setup"); code != exitOK {
		t.Fatalf("setup exited %d", code)
	}
	if !setup.Generated {
		t.Error("first setup should generate keys")
	}
	if code := invoke(t, config, &setup, "setup"); code != exitOK || setup.Generated {
		t.Errorf("second setup: exit %d, generated %v", code, setup.Generated)
	}

	var proved proveResult
	if code := invoke(t, config, &proved, "prove", "--creditor", zeroAddress1, "--debtor", zeroAddress0, "--amount", "30"); code != exitOK {
		t.Fatalf("prove exited %d", code)
	}
	if len(proved.Proof) != 2*192 {
		t.Errorf("proof hex is %d chars", len(proved.Proof))
	}

	var ok validResult
	if code := invoke(t, config, &ok, "verify", "--commitment", proved.Commitment, "--proof", proved.Proof); code != exitOK || !ok.Valid {
		t.Fatalf("verify: exit %d, valid %v", code, ok.Valid)
	}

	var kept NoteResult
	if code := invoke(t, config, &kept, "note", "--creditor", zeroAddress0, "--amount", "12"); code != exitOK {
		t.Fatal("note failed")
	}
	var reproved proveResult
	if code := invoke(t, config, &reproved, "prove", "--note", kept.Note); code != exitOK {
		t.Fatalf("prove --note exited %d", code)
	}
	if reproved.Commitment != kept.Commitment {
		t.Errorf("proved commitment %s, kept note commits to %s", reproved.Commitment, kept.Commitment)
	}
	if code := invoke(t, config, nil, "verify", "--commitment", kept.Commitment, "--proof", reproved.Proof); code != exitOK {
		t.Errorf("verify of the kept note's proof exited %d", code)
	}

	var other NoteResult
	if code := invoke(t, config, &other, "note", "--creditor", zeroAddress1, "--amount", "31"); code != exitOK {
		t.Fatal("note failed")
	}
	if code := invoke(t, config, nil, "verify", "--commitment", other.Commitment, "--proof", proved.Proof); code != 16 {
		t.Errorf("wrong commitment: exit %d", code)
	}
	if code := invoke(t, config, nil, "verify", "--commitment", proved.Commitment, "--proof", proved.Proof[:100]); code != 14 {
		t.Errorf("short proof: exit %d", code)
	}

	var health HealthCheckResponse
	if code := invoke(t, config, &health, "health", "--prove"); code != exitOK {
		t.Fatalf("health --prove exited %d", code)
	}
	if health.Data.OverallStatus != Healthy {
		t.Errorf("health after setup = %s", health.Data.OverallStatus)
	}
}
