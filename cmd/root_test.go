package cmd

import (
	"errors"
	"io"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCloser struct {
	name   string
	closed *[]string
}

func (c recordingCloser) Close() error {
	*c.closed = append(*c.closed, c.name)
	return nil
}

func TestStateClosedWhenCommandFails(t *testing.T) {
	var closed []string
	closers = []io.Closer{
		recordingCloser{name: "log", closed: &closed},
		recordingCloser{name: "db", closed: &closed},
	}
	t.Cleanup(func() { closers = nil })

	failing := &cobra.Command{
		Use:           "fail",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.New("stage failed")
		},
	}
	failing.SetArgs([]string{})

	require.Error(t, failing.Execute())
	assert.Equal(t, []string{"db", "log"}, closed)
	assert.Empty(t, closers)
}

func TestCloseStateIsIdempotent(t *testing.T) {
	var closed []string
	closers = []io.Closer{recordingCloser{name: "db", closed: &closed}}

	closeState()
	closeState()

	assert.Equal(t, []string{"db"}, closed)
}
