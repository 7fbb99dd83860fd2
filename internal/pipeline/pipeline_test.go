package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"shotnamer/internal/config"
	"shotnamer/internal/history"
	"shotnamer/internal/logging"
	"shotnamer/internal/pipeline"
	"shotnamer/internal/pipeline/mocks"
	"shotnamer/internal/services"
	"shotnamer/internal/textutil"
	"shotnamer/internal/watcher"
)

func testOptions() pipeline.Options {
	return pipeline.Options{
		Prefixes:   []string{"Screenshot", "Screen Shot"},
		Extensions: []string{".png", ".jpg", ".jpeg"},
		Stemmer:    textutil.Stemmer{},
		Model:      "qwen3-vl:2b",
	}
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(filepath.Base(path)), 0o644))
}

func TestFilter(t *testing.T) {
	p := pipeline.New(testOptions(), nil, logging.NewNop())

	tests := []struct {
		name string
		file string
		pass bool
	}{
		{"screenshot png", "Screenshot 2024.png", true},
		{"uppercase extension", "Screenshot 2024.PNG", true},
		{"screen shot jpeg", "Screen Shot 2020-01-01 at 10.00.00.jpeg", true},
		{"no prefix", "photo.png", false},
		{"wrong extension", "Screenshot.gif", false},
		{"prefix is case-sensitive", "screenshot 1.png", false},
		{"no extension", "Screenshot 1", false},
		{"prefix later in name", "My Screenshot.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand, err := p.Filter(filepath.Join("/shots", tt.file))
			if tt.pass {
				require.NoError(t, err)
				assert.Equal(t, tt.file, cand.Base)
				assert.Equal(t, filepath.Ext(tt.file), cand.Ext)
				assert.Equal(t, "/shots", cand.Dir())
				return
			}
			assert.ErrorIs(t, err, services.ErrFilteredOut)
		})
	}
}

func TestHandleRenamesScreenshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	captioner := mocks.NewMockCaptioner(ctrl)
	journal := mocks.NewMockJournal(ctrl)

	dir := t.TempDir()
	src := filepath.Join(dir, "Screenshot 10-05.png")
	writeFile(t, src)

	captioner.EXPECT().Caption(gomock.Any(), src).Return("  The title is: Budget Overview!!  ", nil)
	journal.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry history.Record) (int64, error) {
			assert.Equal(t, src, entry.OriginalPath)
			assert.Equal(t, filepath.Join(dir, "budget_overview.png"), entry.FinalPath)
			assert.Equal(t, "qwen3-vl:2b", entry.Model)
			assert.NotEmpty(t, entry.CorrelationID)
			return 1, nil
		})

	p := pipeline.New(testOptions(), captioner, logging.NewNop(), pipeline.WithJournal(journal))
	out := p.Handle(context.Background(), watcher.Event{Kind: watcher.Created, Path: src})

	require.NoError(t, out.Err)
	assert.Equal(t, pipeline.StateRenamed, out.State)
	assert.True(t, out.Succeeded())
	assert.Equal(t, filepath.Join(dir, "budget_overview.png"), out.Target)
	assert.Equal(t, "budget_overview", out.Stem)
	assert.NoFileExists(t, src)
	assert.FileExists(t, out.Target)
}

func TestHandleResolvesCollisions(t *testing.T) {
	ctrl := gomock.NewController(t)
	captioner := mocks.NewMockCaptioner(ctrl)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "foo.png"))
	writeFile(t, filepath.Join(dir, "foo_1.png"))
	src := filepath.Join(dir, "Screenshot 1.png")
	writeFile(t, src)

	captioner.EXPECT().Caption(gomock.Any(), src).Return("foo", nil)

	p := pipeline.New(testOptions(), captioner, logging.NewNop())
	out := p.Handle(context.Background(), watcher.Event{Kind: watcher.Moved, Path: src})

	require.NoError(t, out.Err)
	assert.Equal(t, filepath.Join(dir, "foo_2.png"), out.Target)
	content, err := os.ReadFile(filepath.Join(dir, "foo.png"))
	require.NoError(t, err)
	assert.Equal(t, "foo.png", string(content), "existing file must not be replaced")
}

func TestHandleCaptionFailureLeavesFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	captioner := mocks.NewMockCaptioner(ctrl)
	journal := mocks.NewMockJournal(ctrl)

	dir := t.TempDir()
	src := filepath.Join(dir, "Screenshot 3.png")
	writeFile(t, src)

	cause := services.Wrap(services.ErrInvocationFailed, "caption", "describe image", "Screenshot 3.png", errors.New("connection refused"))
	captioner.EXPECT().Caption(gomock.Any(), src).Return("", cause)

	p := pipeline.New(testOptions(), captioner, logging.NewNop(), pipeline.WithJournal(journal))
	out := p.Handle(context.Background(), watcher.Event{Kind: watcher.Created, Path: src})

	assert.Equal(t, pipeline.StateCaptionFailed, out.State)
	assert.False(t, out.Succeeded())
	assert.ErrorIs(t, out.Err, services.ErrInvocationFailed)
	assert.FileExists(t, src)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestHandleRejectedEventSkipsCaptioner(t *testing.T) {
	ctrl := gomock.NewController(t)
	captioner := mocks.NewMockCaptioner(ctrl)

	p := pipeline.New(testOptions(), captioner, logging.NewNop())
	out := p.Handle(context.Background(), watcher.Event{Kind: watcher.Created, Path: "/shots/photo.png"})

	assert.Equal(t, pipeline.StateRejected, out.State)
	assert.ErrorIs(t, out.Err, services.ErrFilteredOut)
}

func TestHandleCancelledDuringSettle(t *testing.T) {
	ctrl := gomock.NewController(t)
	captioner := mocks.NewMockCaptioner(ctrl)

	opts := testOptions()
	opts.SettleDelay = time.Hour
	p := pipeline.New(opts, captioner, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := p.Handle(ctx, watcher.Event{Kind: watcher.Created, Path: "/shots/Screenshot 1.png"})

	assert.Equal(t, pipeline.StateCancelled, out.State)
	assert.ErrorIs(t, out.Err, context.Canceled)
}

func TestCancelDuringCaptionStillRenames(t *testing.T) {
	ctrl := gomock.NewController(t)
	captioner := mocks.NewMockCaptioner(ctrl)
	journal := mocks.NewMockJournal(ctrl)

	dir := t.TempDir()
	src := filepath.Join(dir, "Screenshot 7.png")
	writeFile(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	captioner.EXPECT().Caption(gomock.Any(), src).DoAndReturn(
		func(callCtx context.Context, _ string) (string, error) {
			cancel()
			select {
			case <-callCtx.Done():
				return "", callCtx.Err()
			case <-time.After(50 * time.Millisecond):
				return "Late Caption", nil
			}
		})
	journal.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
		func(recordCtx context.Context, entry history.Record) (int64, error) {
			require.NoError(t, recordCtx.Err())
			return 1, nil
		})

	p := pipeline.New(testOptions(), captioner, logging.NewNop(), pipeline.WithJournal(journal))
	out := p.Process(ctx, pipeline.NewCandidate(src), pipeline.Mode{Settle: true})

	require.NoError(t, out.Err)
	assert.Equal(t, pipeline.StateRenamed, out.State)
	assert.FileExists(t, filepath.Join(dir, "late_caption.png"))
	assert.NoFileExists(t, src)
}

func TestRunStopsBetweenEventsAfterCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	captioner := mocks.NewMockCaptioner(ctrl)

	dir := t.TempDir()
	first := filepath.Join(dir, "Screenshot a.png")
	second := filepath.Join(dir, "Screenshot b.png")
	writeFile(t, first)
	writeFile(t, second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	captioner.EXPECT().Caption(gomock.Any(), first).DoAndReturn(
		func(context.Context, string) (string, error) {
			cancel()
			return "Quarterly Plan", nil
		})

	events := make(chan watcher.Event, 2)
	events <- watcher.Event{Kind: watcher.Created, Path: first}
	events <- watcher.Event{Kind: watcher.Created, Path: second}

	p := pipeline.New(testOptions(), captioner, logging.NewNop())
	require.NoError(t, p.Run(ctx, events))

	assert.FileExists(t, filepath.Join(dir, "quarterly_plan.png"))
	assert.FileExists(t, second, "events after cancellation are left alone")
}

func TestProcessEmptyCaptionUsesFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	captioner := mocks.NewMockCaptioner(ctrl)

	dir := t.TempDir()
	src := filepath.Join(dir, "Screenshot 8.png")
	writeFile(t, src)

	captioner.EXPECT().Caption(gomock.Any(), src).Return("", nil)

	p := pipeline.New(testOptions(), captioner, logging.NewNop())
	out := p.Process(context.Background(), pipeline.NewCandidate(src), pipeline.Mode{})

	require.NoError(t, out.Err)
	assert.Equal(t, pipeline.StateRenamed, out.State)
	assert.Equal(t, filepath.Join(dir, textutil.DefaultFallbackStem+".png"), out.Target)
	assert.FileExists(t, out.Target)
}

func TestProcessMoveFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	captioner := mocks.NewMockCaptioner(ctrl)

	dir := t.TempDir()
	src := filepath.Join(dir, "Screenshot 4.png")
	writeFile(t, src)

	captioner.EXPECT().Caption(gomock.Any(), src).DoAndReturn(func(context.Context, string) (string, error) {
		require.NoError(t, os.Remove(src))
		return "vanished chart", nil
	})

	p := pipeline.New(testOptions(), captioner, logging.NewNop())
	out := p.Process(context.Background(), pipeline.NewCandidate(src), pipeline.Mode{})

	assert.Equal(t, pipeline.StateMoveFailed, out.State)
	assert.ErrorIs(t, out.Err, services.ErrMoveFailed)
	assert.NoFileExists(t, filepath.Join(dir, "vanished_chart.png"))
}

func TestProcessDryRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	captioner := mocks.NewMockCaptioner(ctrl)

	dir := t.TempDir()
	src := filepath.Join(dir, "Screenshot 5.jpg")
	writeFile(t, src)
	writeFile(t, filepath.Join(dir, "sunset_over_bay.jpg"))

	captioner.EXPECT().Caption(gomock.Any(), src).Return("Sunset over bay", nil)

	p := pipeline.New(testOptions(), captioner, logging.NewNop())
	out := p.Process(context.Background(), pipeline.NewCandidate(src), pipeline.Mode{DryRun: true})

	assert.Equal(t, pipeline.StateResolved, out.State)
	assert.Equal(t, filepath.Join(dir, "sunset_over_bay_1.jpg"), out.Target)
	assert.FileExists(t, src)
	assert.NoFileExists(t, out.Target)
}

func TestProcessKeepsExtensionCase(t *testing.T) {
	ctrl := gomock.NewController(t)
	captioner := mocks.NewMockCaptioner(ctrl)

	dir := t.TempDir()
	src := filepath.Join(dir, "Screenshot 6.PNG")
	writeFile(t, src)
	captioner.EXPECT().Caption(gomock.Any(), src).Return("Release Notes", nil)

	p := pipeline.New(testOptions(), captioner, logging.NewNop())
	out := p.Process(context.Background(), pipeline.NewCandidate(src), pipeline.Mode{})

	require.NoError(t, out.Err)
	assert.Equal(t, filepath.Join(dir, "release_notes.PNG"), out.Target)
}

func TestProcessUnchangedWhenAlreadyNamed(t *testing.T) {
	ctrl := gomock.NewController(t)
	captioner := mocks.NewMockCaptioner(ctrl)

	dir := t.TempDir()
	src := filepath.Join(dir, "budget_overview.png")
	writeFile(t, src)
	captioner.EXPECT().Caption(gomock.Any(), src).Return("Budget Overview", nil)

	p := pipeline.New(testOptions(), captioner, logging.NewNop())
	out := p.Process(context.Background(), pipeline.NewCandidate(src), pipeline.Mode{})

	assert.Equal(t, pipeline.StateUnchanged, out.State)
	assert.FileExists(t, src)
	assert.NoFileExists(t, filepath.Join(dir, "budget_overview_1.png"))
}

func TestJournalFailureDoesNotUndoRename(t *testing.T) {
	ctrl := gomock.NewController(t)
	captioner := mocks.NewMockCaptioner(ctrl)
	journal := mocks.NewMockJournal(ctrl)

	dir := t.TempDir()
	src := filepath.Join(dir, "Screenshot 7.png")
	writeFile(t, src)
	captioner.EXPECT().Caption(gomock.Any(), src).Return("Roadmap", nil)
	journal.EXPECT().Record(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("disk full"))

	p := pipeline.New(testOptions(), captioner, logging.NewNop(), pipeline.WithJournal(journal))
	out := p.Process(context.Background(), pipeline.NewCandidate(src), pipeline.Mode{})

	assert.Equal(t, pipeline.StateRenamed, out.State)
	assert.FileExists(t, filepath.Join(dir, "roadmap.png"))
}

func TestRunProcessesEventsInOrderAndSurvivesFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	captioner := mocks.NewMockCaptioner(ctrl)

	dir := t.TempDir()
	first := filepath.Join(dir, "Screenshot a.png")
	second := filepath.Join(dir, "Screenshot b.png")
	writeFile(t, first)
	writeFile(t, second)

	gomock.InOrder(
		captioner.EXPECT().Caption(gomock.Any(), first).Return("", services.ErrInvocationFailed),
		captioner.EXPECT().Caption(gomock.Any(), second).Return("Team Sync", nil),
	)

	events := make(chan watcher.Event, 3)
	events <- watcher.Event{Kind: watcher.Created, Path: first}
	events <- watcher.Event{Kind: watcher.Created, Path: filepath.Join(dir, "notes.txt")}
	events <- watcher.Event{Kind: watcher.Created, Path: second}
	close(events)

	p := pipeline.New(testOptions(), captioner, logging.NewNop())
	require.NoError(t, p.Run(context.Background(), events))

	assert.FileExists(t, first)
	assert.FileExists(t, filepath.Join(dir, "team_sync.png"))
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Watch.SettleDelayMS = 1500
	cfg.Naming.MaxStemLength = 20

	opts := pipeline.OptionsFromConfig(&cfg)

	assert.Equal(t, cfg.Watch.Prefixes, opts.Prefixes)
	assert.Equal(t, cfg.Watch.Extensions, opts.Extensions)
	assert.Equal(t, 1500*time.Millisecond, opts.SettleDelay)
	assert.Equal(t, 20, opts.Stemmer.MaxLength)
	assert.Equal(t, "qwen3-vl:2b", opts.Model)
}
