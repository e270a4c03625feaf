package ffmpeg

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"

	"mediasieve/internal/staging"
)

type fakeProcess struct {
	stderr     io.Reader
	exitCode   int
	terminated bool
}

func (p *fakeProcess) Stderr() io.Reader { return p.stderr }

func (p *fakeProcess) Wait() (int, error) { return p.exitCode, nil }

func (p *fakeProcess) Terminate() error {
	p.terminated = true
	return nil
}

// fakeRunner writes every staged output it sees. claim occupies a final path
// and removeDir deletes a directory once the staged files exist.
type fakeRunner struct {
	scratch   string
	stderr    string
	exitCode  int
	readErr   error
	claim     string
	removeDir string
	calls     int
	args      []string
	proc      *fakeProcess
}

func (r *fakeRunner) Start(_ context.Context, args []string) (Process, error) {
	r.calls++
	r.args = append([]string(nil), args...)
	for _, arg := range args {
		if strings.HasPrefix(arg, r.scratch+string(os.PathSeparator)) {
			if err := os.WriteFile(arg, []byte("encoded"), 0o644); err != nil {
				return nil, err
			}
		}
	}
	if r.removeDir != "" {
		if err := os.RemoveAll(r.removeDir); err != nil {
			return nil, err
		}
	}
	if r.claim != "" {
		if err := os.WriteFile(r.claim, []byte("someone else"), 0o644); err != nil {
			return nil, err
		}
	}
	var stderr io.Reader = strings.NewReader(r.stderr)
	if r.readErr != nil {
		stderr = io.MultiReader(stderr, &errReader{err: r.readErr})
	}
	r.proc = &fakeProcess{stderr: stderr, exitCode: r.exitCode}
	return r.proc, nil
}

type errReader struct{ err error }

func (e *errReader) Read([]byte) (int, error) { return 0, e.err }

type fixture struct {
	dir     string
	scratch string
	input   string
	runner  *fakeRunner
	sup     *Supervisor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	area, err := staging.NewArea(filepath.Join(dir, "scratch"))
	if err != nil {
		t.Fatalf("NewArea: %v", err)
	}
	input := filepath.Join(dir, "in.ts")
	if err := os.WriteFile(input, []byte("source"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	binary := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(binary, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write binary: %v", err)
	}
	runner := &fakeRunner{scratch: area.Dir()}
	sup, err := New(binary, area, WithRunner(runner))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{dir: dir, scratch: area.Dir(), input: input, runner: runner, sup: sup}
}

func (f *fixture) scratchFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.scratch)
	if err != nil {
		t.Fatalf("read scratch: %v", err)
	}
	var names []string
	for _, e := range entries {
		if e.Name() != staging.LockFileName {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestNewRejectsMissingBinary(t *testing.T) {
	area, err := staging.NewArea(t.TempDir())
	if err != nil {
		t.Fatalf("NewArea: %v", err)
	}
	if _, err := New(filepath.Join(t.TempDir(), "ffmpeg"), area); !errors.Is(err, ErrBinaryNotFound) {
		t.Fatalf("expected ErrBinaryNotFound, got %v", err)
	}
}

func TestTranscodeBuildsArguments(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(f.dir, "out.mkv")
	inArgs := []string{"-ss", "10"}
	outArgs := []string{"-c:v", "libx264"}

	res, err := f.sup.Transcode(context.Background(), Request{
		GeneralArgs: []string{"-threads", "2"},
		Inputs:      []Input{{Args: inArgs, Path: f.input}},
		Outputs:     []Output{{Args: outArgs, Path: out}},
	})
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	tmp := res.Outputs[0].TempPath
	want := []string{f.sup.Binary(), "-hide_banner", "-n", "-nostdin", "-loglevel", "warning", "-stats",
		"-threads", "2", "-ss", "10", "-i", f.input, "-c:v", "libx264", tmp}
	if !reflect.DeepEqual(f.runner.args, want) {
		t.Fatalf("args = %v\nwant %v", f.runner.args, want)
	}
	if filepath.Dir(tmp) != f.scratch || filepath.Ext(tmp) != ".mkv" {
		t.Fatalf("unexpected temp path %q", tmp)
	}
	if len(inArgs) != 2 || len(outArgs) != 2 {
		t.Fatal("caller argument slices must not be modified")
	}
}

func TestTranscodeCommitsOutputs(t *testing.T) {
	f := newFixture(t)
	f.runner.stderr = "frame=   10 fps=0.0 q=28.0 size=0kB\rframe=  250 fps=25 q=28.0 size=1kB\r\nfinal line\n"
	out := filepath.Join(f.dir, "out.mkv")

	var frames []int
	res, err := f.sup.Transcode(context.Background(), Request{
		Inputs:   []Input{{Path: f.input}},
		Outputs:  []Output{{Path: out}},
		Progress: func(frame int) { frames = append(frames, frame) },
	})
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if !reflect.DeepEqual(frames, []int{10, 250}) {
		t.Fatalf("progress frames = %v", frames)
	}
	if res.LastFrame != 250 || res.Outputs[0].FinalPath != out || res.Outputs[0].Renamed {
		t.Fatalf("unexpected result %+v", res)
	}
	data, err := os.ReadFile(out)
	if err != nil || string(data) != "encoded" {
		t.Fatalf("final output = %q, %v", data, err)
	}
	if left := f.scratchFiles(t); len(left) != 0 {
		t.Fatalf("scratch not empty: %v", left)
	}
}

func TestTranscodeResolvesCollision(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(f.dir, "out.mkv")
	f.runner.claim = out

	res, err := f.sup.Transcode(context.Background(), Request{
		Inputs:  []Input{{Path: f.input}},
		Outputs: []Output{{Path: out}},
	})
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	committed := res.Outputs[0]
	tmpBase := filepath.Base(committed.TempPath)
	want := filepath.Join(f.dir, "out."+tmpBase[:8]+".mkv")
	if !committed.Renamed || committed.FinalPath != want {
		t.Fatalf("committed = %+v, want final %s", committed, want)
	}
	claimed, _ := os.ReadFile(out)
	if string(claimed) != "someone else" {
		t.Fatalf("existing file overwritten: %q", claimed)
	}
	if data, err := os.ReadFile(want); err != nil || string(data) != "encoded" {
		t.Fatalf("suffixed output = %q, %v", data, err)
	}
}

func TestTranscodeRejectsMissingInput(t *testing.T) {
	f := newFixture(t)
	for _, input := range []string{filepath.Join(f.dir, "missing.ts"), f.dir} {
		_, err := f.sup.Transcode(context.Background(), Request{
			Inputs:  []Input{{Path: f.input}, {Path: input}},
			Outputs: []Output{{Path: filepath.Join(f.dir, "out.mkv")}},
		})
		if !errors.Is(err, ErrInputNotFound) {
			t.Fatalf("%s: expected ErrInputNotFound, got %v", input, err)
		}
	}
	if f.runner.calls != 0 {
		t.Fatal("runner must not be called")
	}
}

func TestTranscodeRejectsExistingOutput(t *testing.T) {
	f := newFixture(t)
	existing := filepath.Join(f.dir, "taken.mkv")
	if err := os.WriteFile(existing, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := f.sup.Transcode(context.Background(), Request{
		Inputs:  []Input{{Path: f.input}},
		Outputs: []Output{{Path: filepath.Join(f.dir, "fresh.mkv")}, {Path: existing}},
	})
	if !errors.Is(err, ErrOutputExists) {
		t.Fatalf("expected ErrOutputExists, got %v", err)
	}
	if f.runner.calls != 0 {
		t.Fatal("runner must not be called")
	}
	if left := f.scratchFiles(t); len(left) != 0 {
		t.Fatalf("no temp file may be created, found %v", left)
	}
	if _, err := os.Stat(filepath.Join(f.dir, "fresh.mkv")); !os.IsNotExist(err) {
		t.Fatal("no output may be created")
	}
}

func TestTranscodeRejectsMissingOutputDirectory(t *testing.T) {
	f := newFixture(t)
	_, err := f.sup.Transcode(context.Background(), Request{
		Inputs:  []Input{{Path: f.input}},
		Outputs: []Output{{Path: filepath.Join(f.dir, "a.mkv")}, {Path: filepath.Join(f.dir, "missing", "b.mkv")}},
	})
	if !errors.Is(err, ErrOutputDirNotFound) {
		t.Fatalf("expected ErrOutputDirNotFound, got %v", err)
	}
	if f.runner.calls != 0 {
		t.Fatal("ffmpeg must not start when an output directory is missing")
	}
}

func TestTranscodeCommitFailureRollsBackEarlierOutputs(t *testing.T) {
	f := newFixture(t)
	sub := filepath.Join(f.dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	first := filepath.Join(f.dir, "a.mkv")
	f.runner.removeDir = sub

	res, err := f.sup.Transcode(context.Background(), Request{
		Inputs:  []Input{{Path: f.input}},
		Outputs: []Output{{Path: first}, {Path: filepath.Join(sub, "b.mkv")}},
	})
	if err == nil {
		t.Fatal("expected commit error")
	}
	if len(res.Outputs) != 0 {
		t.Fatalf("failed commit reported outputs: %+v", res.Outputs)
	}
	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Fatalf("first output left at final path: %v", err)
	}
	if left := f.scratchFiles(t); len(left) != 0 {
		t.Fatalf("scratch not empty: %v", left)
	}
}

func TestTranscodeSimulateNeverSpawns(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(f.dir, "out.mkv")

	res, err := f.sup.Transcode(context.Background(), Request{
		Inputs:   []Input{{Path: f.input}},
		Outputs:  []Output{{Path: out}},
		Simulate: true,
	})
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if f.runner.calls != 0 {
		t.Fatal("simulate must not start ffmpeg")
	}
	if !res.Simulated || len(res.Outputs) != 1 || res.Outputs[0].FinalPath != out {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatal("simulate must not create outputs")
	}
	if left := f.scratchFiles(t); len(left) != 0 {
		t.Fatalf("simulate must not touch scratch, found %v", left)
	}
}

func TestTranscodeFailureRemovesStagedFiles(t *testing.T) {
	f := newFixture(t)
	f.runner.exitCode = 1
	f.runner.stderr = "l1\nl2\nl3\nl4\nl5\nl6\nConversion failed!\n"
	out := filepath.Join(f.dir, "out.mkv")

	_, err := f.sup.Transcode(context.Background(), Request{
		Inputs:  []Input{{Path: f.input}},
		Outputs: []Output{{Path: out}, {Path: filepath.Join(f.dir, "out.aac")}},
	})
	var procErr *ProcessError
	if !errors.As(err, &procErr) || !errors.Is(err, ErrProcess) {
		t.Fatalf("expected ProcessError, got %v", err)
	}
	if procErr.ExitCode != 1 {
		t.Fatalf("exit code = %d", procErr.ExitCode)
	}
	wantTail := []string{"l3", "l4", "l5", "l6", "Conversion failed!"}
	if !reflect.DeepEqual(procErr.Tail, wantTail) {
		t.Fatalf("tail = %v", procErr.Tail)
	}
	if left := f.scratchFiles(t); len(left) != 0 {
		t.Fatalf("staged files left behind: %v", left)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatal("no partial output may reach the final path")
	}
}

func TestTranscodeUnparsableProgressDisablesParsing(t *testing.T) {
	f := newFixture(t)
	f.runner.stderr = "frame=   10 fps=1\rframe=  abc fps=2\rframe=   30 fps=3\n"

	var frames []int
	_, err := f.sup.Transcode(context.Background(), Request{
		Inputs:   []Input{{Path: f.input}},
		Outputs:  []Output{{Path: filepath.Join(f.dir, "out.mkv")}},
		Progress: func(frame int) { frames = append(frames, frame) },
	})
	if err != nil {
		t.Fatalf("Transcode should still succeed: %v", err)
	}
	if !reflect.DeepEqual(frames, []int{10}) {
		t.Fatalf("frames = %v", frames)
	}
}

func TestTranscodeDrainErrorTerminates(t *testing.T) {
	f := newFixture(t)
	f.runner.stderr = "frame=   10 fps=1\n"
	f.runner.readErr = errors.New("pipe broke")

	_, err := f.sup.Transcode(context.Background(), Request{
		Inputs:  []Input{{Path: f.input}},
		Outputs: []Output{{Path: filepath.Join(f.dir, "out.mkv")}},
	})
	var procErr *ProcessError
	if !errors.As(err, &procErr) || procErr.DrainErr == nil {
		t.Fatalf("expected ProcessError with drain error, got %v", err)
	}
	if !f.runner.proc.terminated {
		t.Fatal("process should be terminated after a drain failure")
	}
	if left := f.scratchFiles(t); len(left) != 0 {
		t.Fatalf("staged files left behind: %v", left)
	}
}

type recordingObserver struct {
	results []string
	frames  []int
}

func (r *recordingObserver) ObserveTranscode(result string, _ time.Duration, frames int) {
	r.results = append(r.results, result)
	r.frames = append(r.frames, frames)
}

func TestObserverOutcomes(t *testing.T) {
	f := newFixture(t)
	observer := &recordingObserver{}
	f.sup.observer = observer
	f.runner.stderr = "frame=  42 fps=1\n"

	req := func(name string, simulate bool) Request {
		return Request{
			Inputs:   []Input{{Path: f.input}},
			Outputs:  []Output{{Path: filepath.Join(f.dir, name)}},
			Simulate: simulate,
		}
	}
	if _, err := f.sup.Transcode(context.Background(), req("a.mkv", false)); err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if _, err := f.sup.Transcode(context.Background(), req("b.mkv", true)); err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	f.runner.exitCode = 2
	_, _ = f.sup.Transcode(context.Background(), req("c.mkv", false))

	if !reflect.DeepEqual(observer.results, []string{"ok", "simulated", "failed"}) {
		t.Fatalf("results = %v", observer.results)
	}
	if observer.frames[0] != 42 {
		t.Fatalf("frames = %v", observer.frames)
	}
}

func TestScanOutputLines(t *testing.T) {
	scanner := newOutputScanner(strings.NewReader("a\rb\r\nc\n\nd"))
	var got []string
	for scanner.Scan() {
		got = append(got, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	want := []string{"a", "b", "c", "", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("lines = %q, want %q", got, want)
	}
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		line       string
		frame      int
		isProgress bool
		isErr      bool
	}{
		{"frame=  120 fps= 30 q=28.0 size=  512kB", 120, true, false},
		{"frame=1 fps=0.0", 1, true, false},
		{"size=  512kB time=00:00:04.00", 0, false, false},
		{"frame=N/A fps=0", 0, true, true},
		{"frame=  120 q=28.0", 0, true, true},
	}
	for _, tt := range tests {
		frame, isProgress, err := parseFrame(tt.line)
		if frame != tt.frame || isProgress != tt.isProgress || (err != nil) != tt.isErr {
			t.Fatalf("parseFrame(%q) = %d, %v, %v", tt.line, frame, isProgress, err)
		}
	}
}

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestTranscodeWithShellStub(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub requires a POSIX shell")
	}
	dir := t.TempDir()
	area, err := staging.NewArea(filepath.Join(dir, "scratch"))
	if err != nil {
		t.Fatalf("NewArea: %v", err)
	}
	input := filepath.Join(dir, "in.ts")
	if err := os.WriteFile(input, []byte("source"), 0o644); err != nil {
		t.Fatal(err)
	}
	script := writeScript(t, dir, `#!/bin/sh
for last; do :; done
printf 'frame=   10 fps=0.0 q=0.0\rframe=   20 fps=0.0 q=0.0\n' >&2
echo encoded > "$last"
if [ "$STUB_FAIL" = "1" ]; then echo "Conversion failed!" >&2; exit 3; fi
`)
	sup, err := New(script, area)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out := filepath.Join(dir, "out.mkv")
	var frames []int
	res, err := sup.Transcode(context.Background(), Request{
		Inputs:   []Input{{Path: input}},
		Outputs:  []Output{{Path: out}},
		Progress: func(frame int) { frames = append(frames, frame) },
	})
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if !reflect.DeepEqual(frames, []int{10, 20}) || res.LastFrame != 20 {
		t.Fatalf("frames = %v, result %+v", frames, res)
	}
	if data, err := os.ReadFile(out); err != nil || strings.TrimSpace(string(data)) != "encoded" {
		t.Fatalf("output = %q, %v", data, err)
	}

	t.Setenv("STUB_FAIL", "1")
	failed := filepath.Join(dir, "failed.mkv")
	_, err = sup.Transcode(context.Background(), Request{
		Inputs:  []Input{{Path: input}},
		Outputs: []Output{{Path: failed}},
	})
	var procErr *ProcessError
	if !errors.As(err, &procErr) || procErr.ExitCode != 3 {
		t.Fatalf("expected exit 3, got %v", err)
	}
	if procErr.Tail[len(procErr.Tail)-1] != "Conversion failed!" {
		t.Fatalf("tail = %v", procErr.Tail)
	}
	if _, err := os.Stat(failed); !os.IsNotExist(err) {
		t.Fatal("failed run must not produce the final output")
	}
	entries, _ := area.List()
	if len(entries) != 0 {
		t.Fatalf("staged files left behind: %v", entries)
	}
}
