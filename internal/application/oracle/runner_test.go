package oracle

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestHelperProcess is not a real test. It stands in for the oracle script when
// re-executed by helperRunner.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	id := os.Args[len(os.Args)-1]
	switch os.Getenv("ORACLE_MODE") {
	case "ok":
		fmt.Printf("fetching %s from warehouse\n", id)
		fmt.Println(`{"oldValuation": 1000000, "newValuation": 1100000}`)
	case "echo":
		fmt.Printf(`{"newValuation": 1, "id": %q}`+"\n", id)
	case "malformed":
		fmt.Println("valuation: lots")
	case "fail":
		fmt.Fprintln(os.Stderr, "warehouse unreachable")
		os.Exit(3)
	case "sleep":
		time.Sleep(10 * time.Second)
	case "flood":
		fmt.Print(strings.Repeat("x", 4096))
	}
	os.Exit(0)
}

func helperRunner(mode string) *ExecRunner {
	return &ExecRunner{
		Command:   os.Args[0],
		Args:      []string{"-test.run=TestHelperProcess", "--"},
		Env:       []string{"GO_WANT_HELPER_PROCESS=1", "ORACLE_MODE=" + mode},
		Timeout:   5 * time.Second,
		MaxOutput: 10 << 20,
	}
}

func TestExecRunner_Success(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	out, err := helperRunner("ok").Run(context.Background(), "EXT-1")
	require.NoError(t, err)
	assert.Contains(t, string(out), "fetching EXT-1")
	assert.Contains(t, string(out), `"newValuation": 1100000`)
}

func TestExecRunner_PassesIDAsSingleArgument(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	id := "EXT-1; rm -rf /"
	out, err := helperRunner("echo").Run(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"id": "EXT-1; rm -rf /"`)
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	_, err := helperRunner("fail").Run(context.Background(), "EXT-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warehouse unreachable")
}

func TestExecRunner_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := helperRunner("sleep")
	r.Timeout = 200 * time.Millisecond
	start := time.Now()
	_, err := r.Run(context.Background(), "EXT-1")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecRunner_OutputCap(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := helperRunner("flood")
	r.MaxOutput = 1024
	_, err := r.Run(context.Background(), "EXT-1")
	assert.ErrorIs(t, err, ErrOutputTooLarge)
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := &ExecRunner{Command: "/nonexistent/oracle", Timeout: time.Second}
	_, err := r.Run(context.Background(), "EXT-1")
	assert.Error(t, err)
}

func TestLimitedWriter(t *testing.T) {
	var sb strings.Builder
	lw := &limitedWriter{w: &sb, max: 5}
	n, err := lw.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = lw.Write([]byte("defg"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "abcde", sb.String())
	assert.True(t, lw.truncated)
}
