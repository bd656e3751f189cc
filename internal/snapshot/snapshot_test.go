package snapshot

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	id, comment, label string
}

type fakeCreator struct {
	calls    []call
	versions map[string]int64
	fail     map[string]error
}

func (f *fakeCreator) CreateSnapshot(_ context.Context, id, comment, label string) (int64, error) {
	f.calls = append(f.calls, call{id: id, comment: comment, label: label})
	if err := f.fail[id]; err != nil {
		return 0, err
	}
	return f.versions[id], nil
}

func fixedNow() time.Time {
	return time.Date(2026, 10, 16, 9, 30, 0, 123456000, time.UTC)
}

func TestSnapshotter_Run(t *testing.T) {
	boom := errors.New("table is locked")

	creator := &fakeCreator{
		versions: map[string]int64{"syn100": 4, "syn300": 9},
		fail:     map[string]error{"syn200": boom},
	}

	s := New(&Config{
		Logger:  slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)),
		Creator: creator,
		Targets: []string{"syn100", "syn200", "syn300"},
		Comment: "weekly",
		Now:     fixedNow,
	})

	result := s.Run(context.Background())

	require.Len(t, result.Outcomes, 3)
	assert.True(t, result.Failed())
	assert.Equal(t, 2, result.Succeeded())
	assert.ErrorIs(t, result.Err(), boom)

	assert.True(t, result.Outcomes[0].Success)
	assert.Equal(t, int64(4), result.Outcomes[0].Version)
	assert.False(t, result.Outcomes[1].Success)
	assert.Equal(t, "syn200", result.Outcomes[1].Target)
	assert.True(t, result.Outcomes[2].Success)
	assert.Equal(t, int64(9), result.Outcomes[2].Version)

	require.Len(t, creator.calls, 3)
	for _, c := range creator.calls {
		assert.Equal(t, "weekly", c.comment)
		assert.Equal(t, "2026-10-16 09:30:00.123456", c.label)
	}
}

func TestSnapshotter_ExplicitLabel(t *testing.T) {
	creator := &fakeCreator{versions: map[string]int64{"syn100": 1}}

	result := New(&Config{
		Logger:  slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)),
		Creator: creator,
		Targets: []string{"syn100"},
		Label:   "release-42",
	}).Run(context.Background())

	assert.False(t, result.Failed())
	require.Len(t, creator.calls, 1)
	assert.Equal(t, "release-42", creator.calls[0].label)
}

func TestSnapshotter_DryRun(t *testing.T) {
	creator := &fakeCreator{}

	result := New(&Config{
		Logger:  slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)),
		Creator: creator,
		Targets: []string{"syn100", "syn200"},
		DryRun:  true,
	}).Run(context.Background())

	assert.Empty(t, creator.calls)
	require.Len(t, result.Outcomes, 2)
	for _, o := range result.Outcomes {
		assert.True(t, o.Success)
		assert.True(t, o.DryRun)
	}
}
