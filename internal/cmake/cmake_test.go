package cmake

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// fakeExecutor records commands and answers Output calls from outputs.
type fakeExecutor struct {
	cmds    []Cmd
	outputs map[string]string
	err     error
}

func (f *fakeExecutor) Run(ctx context.Context, c Cmd) error {
	f.cmds = append(f.cmds, c)
	return f.err
}

func (f *fakeExecutor) Output(ctx context.Context, c Cmd) ([]byte, error) {
	f.cmds = append(f.cmds, c)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.outputs[c.Name+" "+strings.Join(c.Args, " ")]), nil
}

func (f *fakeExecutor) last(t *testing.T) Cmd {
	t.Helper()
	if len(f.cmds) == 0 {
		t.Fatal("no command executed")
	}
	return f.cmds[len(f.cmds)-1]
}

func newFake(src string) (*Driver, *fakeExecutor) {
	fe := &fakeExecutor{outputs: map[string]string{}}
	return New(src, WithExecutor(fe), WithOutput(nil, nil)), fe
}

func argsOf(c Cmd) string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

func TestConfigure(t *testing.T) {
	d, fe := newFake("/src")
	d.Define("FOO", "BAR")
	d.DefineBool("ENABLE", true)
	d.DefineBool("DISABLE", false)

	if err := d.Configure(context.Background(), "debug", "--fresh"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	c := fe.last(t)
	want := "cmake -S /src --preset debug -DDISABLE:BOOL=OFF -DENABLE:BOOL=ON -DFOO:STRING=BAR --fresh"
	if got := argsOf(c); got != want {
		t.Errorf("Configure ran %q, want %q", got, want)
	}
	if c.Dir != "/src" {
		t.Errorf("Dir = %q, want /src", c.Dir)
	}
}

func TestConfigureNoPreset(t *testing.T) {
	d, fe := newFake("/src")
	if err := d.Configure(context.Background(), ""); !errors.Is(err, ErrNoPreset) {
		t.Errorf("Configure error = %v, want ErrNoPreset", err)
	}
	if len(fe.cmds) != 0 {
		t.Errorf("commands ran: %v", fe.cmds)
	}
}

func TestDefineRaw(t *testing.T) {
	d, _ := newFake("")
	for _, def := range []string{"A=1", "B:PATH=/x", "C="} {
		if err := d.DefineRaw(def); err != nil {
			t.Errorf("DefineRaw(%q): %v", def, err)
		}
	}
	for _, def := range []string{"novalue", "=1"} {
		if err := d.DefineRaw(def); err == nil {
			t.Errorf("DefineRaw(%q) accepted", def)
		}
	}
	got := strings.Join(d.definesArgs(), " ")
	if want := "-DA:STRING=1 -DB:PATH=/x -DC:STRING="; got != want {
		t.Errorf("definesArgs = %q, want %q", got, want)
	}
}

func TestDefinesArgsEmpty(t *testing.T) {
	d, _ := newFake("")
	if args := d.definesArgs(); args != nil {
		t.Errorf("definesArgs on empty = %v, want nil", args)
	}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		opts BuildOptions
		want string
	}{
		{"preset", BuildOptions{Preset: "dev"}, "cmake --build --preset dev"},
		{"binary dir", BuildOptions{BinaryDir: "/b"}, "cmake --build /b"},
		{"targets", BuildOptions{Preset: "dev", Targets: []string{"app", "lib"}}, "cmake --build --preset dev --target app lib"},
		{"jobs and clean", BuildOptions{Preset: "dev", Jobs: 8, CleanFirst: true}, "cmake --build --preset dev --parallel 8 --clean-first"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, fe := newFake("/src")
			if err := d.Build(context.Background(), tt.opts); err != nil {
				t.Fatalf("Build: %v", err)
			}
			if got := argsOf(fe.last(t)); got != tt.want {
				t.Errorf("Build ran %q, want %q", got, tt.want)
			}
		})
	}

	d, _ := newFake("/src")
	if err := d.Build(context.Background(), BuildOptions{}); !errors.Is(err, ErrNoPreset) {
		t.Errorf("Build error = %v, want ErrNoPreset", err)
	}
}

func TestTestInstallPack(t *testing.T) {
	d, fe := newFake("/src")
	ctx := context.Background()

	if err := d.Test(ctx, "unit", "-R", "fast"); err != nil {
		t.Fatal(err)
	}
	if got := argsOf(fe.last(t)); got != "ctest --preset unit -R fast" {
		t.Errorf("Test ran %q", got)
	}
	if err := d.Test(ctx, ""); !errors.Is(err, ErrNoPreset) {
		t.Errorf("Test error = %v", err)
	}

	if err := d.Install(ctx, "/b", "/opt/x"); err != nil {
		t.Fatal(err)
	}
	if got := argsOf(fe.last(t)); got != "cmake --install /b --prefix /opt/x" {
		t.Errorf("Install ran %q", got)
	}
	if err := d.Install(ctx, "/b", ""); err != nil {
		t.Fatal(err)
	}
	if got := argsOf(fe.last(t)); got != "cmake --install /b" {
		t.Errorf("Install ran %q", got)
	}

	if err := d.Pack(ctx, "tgz", "/b"); err != nil {
		t.Fatal(err)
	}
	if got := argsOf(fe.last(t)); got != "cpack --preset tgz" {
		t.Errorf("Pack ran %q", got)
	}
}

func TestTestDir(t *testing.T) {
	d, fe := newFake("/src")
	if err := d.TestDir(context.Background(), "/b-cov", "-L", "unit"); err != nil {
		t.Fatal(err)
	}
	if got := argsOf(fe.last(t)); got != "ctest --test-dir /b-cov -L unit" {
		t.Errorf("TestDir ran %q", got)
	}
}

func TestReadCache(t *testing.T) {
	bin := t.TempDir()
	entries, err := ReadCache(bin)
	if err != nil || len(entries) != 0 {
		t.Fatalf("ReadCache of unconfigured tree = %v, %v", entries, err)
	}

	cache := "# This is the CMakeCache file.\n\n" +
		"// Flags used by the C compiler\n" +
		"CMAKE_C_FLAGS:STRING=-O2 -Wall\r\n" +
		"CMAKE_CXX_FLAGS:STRING=\n" +
		"WITH_TESTS:BOOL=ON\n" +
		"CMAKE_CACHEFILE_DIR:INTERNAL=/b\n"
	if err := os.WriteFile(filepath.Join(bin, "CMakeCache.txt"), []byte(cache), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err = ReadCache(bin)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"CMAKE_C_FLAGS":       "-O2 -Wall",
		"CMAKE_CXX_FLAGS":     "",
		"WITH_TESTS":          "ON",
		"CMAKE_CACHEFILE_DIR": "/b",
	}
	if len(entries) != len(want) {
		t.Fatalf("ReadCache = %v, want %v", entries, want)
	}
	for k, v := range want {
		if got, ok := entries[k]; !ok || got != v {
			t.Errorf("entries[%q] = %q (%v), want %q", k, got, ok, v)
		}
	}
}

func TestPackWithConfig(t *testing.T) {
	bin := t.TempDir()
	d, fe := newFake("/src")
	if err := d.Pack(context.Background(), "", bin); err == nil {
		t.Fatal("Pack without CPackConfig.cmake succeeded")
	}

	config := filepath.Join(bin, "CPackConfig.cmake")
	if err := os.WriteFile(config, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := d.Pack(context.Background(), "", bin); err != nil {
		t.Fatal(err)
	}
	c := fe.last(t)
	if got := argsOf(c); got != "cpack --config "+config {
		t.Errorf("Pack ran %q", got)
	}
	if c.Dir != bin {
		t.Errorf("Dir = %q, want %q", c.Dir, bin)
	}
}

func TestRunError(t *testing.T) {
	d, fe := newFake("/src")
	fe.err = errors.New("exit status 2")
	err := d.Build(context.Background(), BuildOptions{Preset: "dev"})
	if err == nil || !strings.Contains(err.Error(), "cmake: exit status 2") {
		t.Errorf("Build error = %v", err)
	}
}

func TestVersion(t *testing.T) {
	d, fe := newFake("/src")
	fe.outputs["cmake --version"] = "cmake version 3.28.1\n\nCMake suite maintained and supported by Kitware (kitware.com/cmake).\n"

	v, err := d.Version(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v != "3.28.1" {
		t.Errorf("Version = %q", v)
	}

	ctx := context.Background()
	for min, ok := range map[string]bool{
		"":       true,
		"3.21.0": true,
		"3.28.1": true,
		"3.29.0": false,
		"4.0.0":  false,
	} {
		err := d.CheckVersion(ctx, min)
		if (err == nil) != ok {
			t.Errorf("CheckVersion(%q) = %v, want ok=%v", min, err, ok)
		}
	}
	if err := d.CheckVersion(ctx, "three"); err == nil {
		t.Error("CheckVersion accepted invalid minimum")
	}

	fe.outputs["cmake --version"] = "something else"
	if _, err := d.Version(ctx); err == nil {
		t.Error("Version parsed garbage")
	}
}

func TestListPresets(t *testing.T) {
	d, fe := newFake("/src")
	fe.outputs["cmake --list-presets=configure"] = "Available configure presets:\r\n\r\n" +
		"  \"linux-debug\"   - Linux Debug\r\n" +
		"  \"linux-release\"\r\n"

	presets, err := d.ListPresets(context.Background(), "configure")
	if err != nil {
		t.Fatal(err)
	}
	want := []Preset{{"linux-debug", "Linux Debug"}, {"linux-release", ""}}
	if len(presets) != len(want) {
		t.Fatalf("presets = %+v", presets)
	}
	for i := range want {
		if presets[i] != want[i] {
			t.Errorf("presets[%d] = %+v, want %+v", i, presets[i], want[i])
		}
	}
}

func TestCoverageData(t *testing.T) {
	bin := t.TempDir()
	for _, p := range []string{
		"CMakeFiles/app.dir/main.cpp.gcda",
		"lib/CMakeFiles/lib.dir/lib.cpp.gcda",
		"lib/CMakeFiles/lib.dir/lib.cpp.gcno",
	} {
		full := filepath.Join(bin, filepath.FromSlash(p))
		os.MkdirAll(filepath.Dir(full), 0o755)
		os.WriteFile(full, nil, 0o644)
	}

	data, err := CoverageData(bin)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 2 || data[0] != "CMakeFiles/app.dir/main.cpp.gcda" {
		t.Errorf("CoverageData = %v", data)
	}

	d, fe := newFake("/src")
	out := filepath.Join(t.TempDir(), "cov")
	if err := d.Coverage(context.Background(), "gcovr", bin, out); err != nil {
		t.Fatal(err)
	}
	want := "gcovr -r /src " + bin + " --html-details " + filepath.Join(out, "index.html")
	if got := argsOf(fe.last(t)); got != want {
		t.Errorf("Coverage ran %q, want %q", got, want)
	}
	if err := d.Coverage(context.Background(), "bogus", bin, out); err == nil {
		t.Error("Coverage accepted unknown tool")
	}
	if err := d.Coverage(context.Background(), "gcovr", t.TempDir(), out); err == nil {
		t.Error("Coverage succeeded without data")
	}
}

func TestFindExecutable(t *testing.T) {
	bin := t.TempDir()
	name := "app"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	for _, p := range []string{
		"CMakeFiles/" + name,
		"Debug/" + name,
	} {
		full := filepath.Join(bin, filepath.FromSlash(p))
		os.MkdirAll(filepath.Dir(full), 0o755)
		os.WriteFile(full, nil, 0o755)
	}

	got, err := FindExecutable(bin, "app")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(bin, "Debug", name); got != want {
		t.Errorf("FindExecutable = %q, want %q", got, want)
	}

	os.WriteFile(filepath.Join(bin, name), nil, 0o755)
	got, _ = FindExecutable(bin, "app")
	if want := filepath.Join(bin, name); got != want {
		t.Errorf("FindExecutable = %q, want %q", got, want)
	}

	if _, err := FindExecutable(bin, "missing"); err == nil {
		t.Error("FindExecutable found a missing target")
	}
}

func TestConfigureBuildInstallE2E(t *testing.T) {
	if _, err := exec.LookPath("cmake"); err != nil {
		t.Skip("cmake not found in PATH")
	}

	src, err := filepath.Abs(filepath.Join("testdata", "project"))
	if err != nil {
		t.Fatal(err)
	}
	tmp := t.TempDir()
	installDir := filepath.Join(tmp, "install")
	buildDir := filepath.Join(tmp, "build")

	d := New(src)
	ctx := context.Background()
	d.Define("FOO", "BAR")
	d.DefineBool("ENABLE", true)

	// testdata has no presets; drive cmake with explicit directories.
	if err := d.run(ctx, Cmd{Name: "cmake", Args: append([]string{"-S", src, "-B", buildDir}, d.definesArgs()...)}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := d.Build(ctx, BuildOptions{BinaryDir: buildDir}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := d.Install(ctx, buildDir, installDir); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if _, err := os.Stat(filepath.Join(installDir, "include", "dummy.h")); err != nil {
		t.Errorf("missing installed header: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(buildDir, "CMakeCache.txt"))
	if err != nil {
		t.Fatalf("read CMakeCache.txt: %v", err)
	}
	for _, want := range []string{"FOO:STRING=BAR", "ENABLE:BOOL=ON"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("CMakeCache.txt missing %q", want)
		}
	}
}
