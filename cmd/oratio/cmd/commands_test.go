package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrityCommandRegistered(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"integrity"})
	require.NoError(t, err)
	assert.Equal(t, "integrity [politician-id|uuid]", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("dry-run"))
}

func TestProfileCommandsCarryIntegrityFlag(t *testing.T) {
	for _, name := range []string{"profile", "profile-all"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.NotNil(t, cmd.Flags().Lookup("integrity-check"), name)
	}
}

func TestBatchCommandsRegistered(t *testing.T) {
	for _, path := range [][]string{{"batch", "pending"}, {"batch", "resume"}, {"batch", "forget"}} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err)
		assert.Equal(t, path[1], cmd.Name())
	}
}

func TestResumeApplyRejectsUnresumableWorkloads(t *testing.T) {
	// Agenda summary pseudonyms are keyed to the submitting process.
	_, err := resumeApply(&cobra.Command{}, nil, "agenda-summaries")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be resumed")

	_, err = resumeApply(&cobra.Command{}, nil, "mystery")
	assert.Error(t, err)
}
