package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ghscore/internal/modkit/module"
	kit "ghscore/internal/platform/testkit"

	"github.com/goccy/go-json"
)

func prLine(id int64, name string) string {
	return fmt.Sprintf(`{"type":"PullRequestEvent","repo":{"id":%d,"name":%q},"payload":{"action":"opened"}}`, id, name)
}

func pushLine(id int64, name string, size int) string {
	return fmt.Sprintf(`{"type":"PushEvent","repo":{"id":%d,"name":%q},"payload":{"distinct_size":%d}}`, id, name, size)
}

// isolate keeps flag driven env from leaking between tests
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range flagEnv {
		t.Setenv(key, "")
	}
	t.Cleanup(module.Reset)
}

func archive(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	kit.WriteGzipLines(t, dir, "2022-08-01-0.json.gz",
		prLine(1, "a/b"),
		pushLine(1, "a/b", 7),
		pushLine(2, "c/d", 1),
	)
	kit.WriteGzipLines(t, dir, "2022-08-01-1.json.gz",
		prLine(4, "g/h"),
		pushLine(4, "g/h", 20),
	)
	kit.WriteGzipLines(t, dir, "2022-08-02-0.json.gz",
		pushLine(9, "x/y", 50),
	)
	return dir
}

func TestRun_TextReport(t *testing.T) {
	isolate(t)
	dir := archive(t)

	var out bytes.Buffer
	code := run(context.Background(), []string{"-dir", dir, "-prefix", "2022-08-01"}, &out)
	if code != exitOK {
		t.Fatalf("exit = %d, want %d", code, exitOK)
	}
	s := out.String()
	gh, ab := strings.Index(s, "g/h"), strings.Index(s, "a/b")
	if gh < 0 || ab < 0 || gh > ab {
		t.Fatalf("want g/h ranked above a/b:\n%s", s)
	}
	kit.MustNotContain(t, s, "c/d")
	kit.MustNotContain(t, s, "x/y")
	kit.MustContain(t, s, "files 2 ok, 0 failed, 0 skipped of 2 | hours 2 (2022-08-01-0 to 2022-08-01-1)")
}

func TestRun_JSONReportWithFlags(t *testing.T) {
	isolate(t)
	dir := archive(t)

	var out bytes.Buffer
	args := []string{"-dir", dir, "-format", "json", "-threshold", "1", "-top", "2", "-workers", "2", "-codec", "pgzip"}
	if code := run(context.Background(), args, &out); code != exitOK {
		t.Fatalf("exit = %d, want %d", code, exitOK)
	}

	var got struct {
		Repos []struct {
			Rank int    `json:"rank"`
			Name string `json:"name"`
		} `json:"repos"`
		Summary struct {
			Files int `json:"files"`
			Repos int `json:"repos"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out.String())
	}
	if len(got.Repos) != 2 || got.Repos[0].Name != "x/y" || got.Repos[1].Name != "g/h" {
		t.Fatalf("repos = %+v", got.Repos)
	}
	if got.Summary.Files != 3 || got.Summary.Repos != 4 {
		t.Fatalf("summary = %+v", got.Summary)
	}
}

func TestRun_ConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		args func(dir string) []string
	}{
		{"no files matched", func(dir string) []string { return []string{"-dir", dir, "-prefix", "2031"} }},
		{"missing dir", func(dir string) []string { return []string{"-dir", filepath.Join(dir, "nope")} }},
		{"bad format", func(dir string) []string { return []string{"-dir", dir, "-format", "xml"} }},
		{"bad codec", func(dir string) []string { return []string{"-dir", dir, "-codec", "zstd"} }},
		{"bad workers", func(dir string) []string { return []string{"-dir", dir, "-workers", "-1"} }},
		{"bad timeout", func(dir string) []string { return []string{"-dir", dir, "-timeout", "-1s"} }},
		{"unknown flag", func(dir string) []string { return []string{"-nope"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)
			dir := archive(t)
			var out bytes.Buffer
			if code := run(context.Background(), tc.args(dir), &out); code != exitConfig {
				t.Fatalf("exit = %d, want %d", code, exitConfig)
			}
			if out.Len() != 0 {
				t.Fatalf("no report expected, got:\n%s", out.String())
			}
		})
	}
}

func TestRun_AllFilesFailed(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "2022-08-01-0.json.gz"), []byte("not gzip"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if code := run(context.Background(), []string{"-dir", dir}, &out); code != exitAllFailed {
		t.Fatalf("exit = %d, want %d", code, exitAllFailed)
	}
	kit.MustContain(t, out.String(), "files 0 ok, 1 failed, 0 skipped of 1")
}

func TestRun_PartialFailureStillSucceeds(t *testing.T) {
	isolate(t)
	dir := archive(t)
	if err := os.WriteFile(filepath.Join(dir, "2022-08-01-9.json.gz"), []byte("not gzip"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if code := run(context.Background(), []string{"-dir", dir}, &out); code != exitOK {
		t.Fatalf("exit = %d, want %d", code, exitOK)
	}
	kit.MustContain(t, out.String(), "files 3 ok, 1 failed, 0 skipped of 4")
}

func TestRun_Interrupted(t *testing.T) {
	isolate(t)
	dir := archive(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if code := run(ctx, []string{"-dir", dir, "-format", "json"}, &out); code != exitInterrupted {
		t.Fatalf("exit = %d, want %d", code, exitInterrupted)
	}
	var got struct {
		Summary struct {
			Selected int `json:"files_selected"`
			Skipped  int `json:"files_skipped"`
			Files    int `json:"files"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out.String())
	}
	if got.Summary.Selected != 3 || got.Summary.Skipped != 3 || got.Summary.Files != 0 {
		t.Fatalf("summary = %+v, want 3 selected and all skipped", got.Summary)
	}
}

func TestRun_ZeroWorkersUsesDefault(t *testing.T) {
	isolate(t)
	dir := archive(t)

	var out bytes.Buffer
	if code := run(context.Background(), []string{"-dir", dir, "-workers", "0"}, &out); code != exitOK {
		t.Fatalf("exit = %d, want %d", code, exitOK)
	}
}

func TestRun_Version(t *testing.T) {
	isolate(t)
	var out bytes.Buffer
	if code := run(context.Background(), []string{"-version"}, &out); code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	if !strings.HasPrefix(out.String(), "ghscore ") {
		t.Fatalf("version output = %q", out.String())
	}
}
