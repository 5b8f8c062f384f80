package lipsync_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dubber/internal/lipsync"
)

func writeInferenceScript(t *testing.T) string {
	t.Helper()
	repo := t.TempDir()
	if err := os.WriteFile(filepath.Join(repo, "inference.py"), []byte("# stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	return repo
}

func TestNewRequiresRepoAndCheckpoint(t *testing.T) {
	if syncer := lipsync.New(nil, "python3", "", "/ckpt.pth"); syncer != nil {
		t.Fatal("expected nil syncer without repo path")
	}
	if syncer := lipsync.New(nil, "python3", "/repo", ""); syncer != nil {
		t.Fatal("expected nil syncer without checkpoint")
	}
}

func TestApplySuccess(t *testing.T) {
	repo := writeInferenceScript(t)
	workDir := t.TempDir()
	syncer := lipsync.New(nil, "python3", repo, "/ckpt.pth").WithCommandRunner(
		func(ctx context.Context, binary string, args ...string) ([]byte, error) {
			// last --outfile value
			outPath := args[len(args)-1]
			return nil, os.WriteFile(outPath, []byte("video"), 0o644)
		})

	result, ok := syncer.Apply(context.Background(), "in.mp4", "dub.wav", workDir)
	if !ok {
		t.Fatal("expected lip-sync to succeed")
	}
	if filepath.Base(result) != "lipsynced.mp4" {
		t.Fatalf("unexpected output path %q", result)
	}
}

func TestApplyFailureFallsBack(t *testing.T) {
	repo := writeInferenceScript(t)
	syncer := lipsync.New(nil, "python3", repo, "/ckpt.pth").WithCommandRunner(
		func(ctx context.Context, binary string, args ...string) ([]byte, error) {
			return []byte("CUDA out of memory"), errors.New("exit status 1")
		})

	if _, ok := syncer.Apply(context.Background(), "in.mp4", "dub.wav", t.TempDir()); ok {
		t.Fatal("expected failure to report ok=false")
	}
}

func TestApplySkipsWhenScriptMissing(t *testing.T) {
	syncer := lipsync.New(nil, "python3", t.TempDir(), "/ckpt.pth")
	if _, ok := syncer.Apply(context.Background(), "in.mp4", "dub.wav", t.TempDir()); ok {
		t.Fatal("expected skip when inference script is absent")
	}
}
