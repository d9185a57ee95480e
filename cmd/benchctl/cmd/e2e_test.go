package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const boardYAML = `
interface: sim
includes:
  - strappings.yaml
pins:
  - name: RESET_N
    alias_of: IOR8
    mode: OpenDrain
    level: true
  - name: BOOTSTRAP
    alias_of: IOC5
    mode: PushPull
    level: false
  - name: TAP_STRAP0
    alias_of: "NULL"
spi:
  - name: BOOTSTRAP
    alias_of: SPI0
    bits_per_sec: 1000000
uarts:
  - name: CONSOLE
    alias_of: UART0
`

const strappingsYAML = `
strappings:
  - name: RESET
    pins:
      - name: RESET_N
        level: false
  - name: ROM_BOOTSTRAP
    pins:
      - name: BOOTSTRAP
        level: true
      - name: TAP_STRAP0
        level: true
`

func writeBoard(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "strappings.yaml"), []byte(strappingsYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "board.yaml")
	if err := os.WriteFile(path, []byte(boardYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// resetFlags restores every flag variable to its default so that flag values
// do not leak from one Execute to the next.
func resetFlags() {
	verbose = false
	confFiles = nil
	overrides = nil
	transportName = "sim"
	usbVID, usbPID = 0x2e8a, 0x000c
	noDefaults = false
	gpioSetMode, gpioSetLevel, gpioSetPull = "", "", ""
	resetDelay = 100 * time.Millisecond
	resetClearUART = false
	configFormat = "yaml"
}

// execute runs the root command with args and returns what it printed on
// stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// Read in background so a full pipe cannot block the command.
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		buf.ReadFrom(r)
		close(done)
	}()

	resetFlags()
	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	w.Close()
	os.Stdout = old
	<-done

	return buf.String() + stderr.String(), err
}

func TestBenchctlE2E(t *testing.T) {
	board := writeBoard(t)

	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "read aliased pin after defaults",
			args:        []string{"--conf", board, "gpio", "read", "reset_n"},
			wantContain: []string{"reset_n (IOR8): high"},
		},
		{
			name:        "read without defaults",
			args:        []string{"--conf", board, "--no-defaults", "gpio", "read", "RESET_N"},
			wantContain: []string{"RESET_N (IOR8): low"},
		},
		{
			name:        "write pin",
			args:        []string{"--conf", board, "gpio", "write", "BOOTSTRAP", "high"},
			wantContain: []string{"BOOTSTRAP (IOC5) set to high"},
		},
		{
			name:    "write bad level",
			args:    []string{"--conf", board, "gpio", "write", "BOOTSTRAP", "maybe"},
			wantErr: true,
		},
		{
			name:        "set pin",
			args:        []string{"gpio", "set", "IOA0", "--mode", "push-pull", "--level", "low", "--pull", "none"},
			wantContain: []string{"IOA0 configured"},
		},
		{
			name:    "set without settings",
			args:    []string{"gpio", "set", "IOA0"},
			wantErr: true,
		},
		{
			name:        "null pin warns",
			args:        []string{"--conf", board, "gpio", "write", "tap_strap0", "high"},
			wantContain: []string{"tap_strap0 (NULL) set to high", "WARN: Accessed NULL pin TAP_STRAP0"},
		},
		{
			name:        "apply strapping",
			args:        []string{"--conf", board, "strapping", "apply", "rom_bootstrap"},
			wantContain: []string{"Applied strapping rom_bootstrap"},
		},
		{
			name:        "remove strapping",
			args:        []string{"--conf", board, "strapping", "remove", "RESET"},
			wantContain: []string{"Removed strapping RESET"},
		},
		{
			name:    "undefined strapping",
			args:    []string{"--conf", board, "strapping", "apply", "UNDEFINED"},
			wantErr: true,
		},
		{
			name:        "list strappings",
			args:        []string{"--conf", board, "strapping", "list"},
			wantContain: []string{"RESET (1 pin(s))", "ROM_BOOTSTRAP (2 pin(s))"},
		},
		{
			name:        "reset with uart clear",
			args:        []string{"--conf", board, "-v", "reset", "--delay", "1ms", "--clear-uart"},
			wantContain: []string{"Target reset", "INFO: Asserting the reset signal", "INFO: Clearing the UART RX buffer"},
		},
		{
			name:    "reset without strapping",
			args:    []string{"reset", "--delay", "1ms"},
			wantErr: true,
		},
		{
			name:        "config show yaml",
			args:        []string{"--conf", board, "--override", "spi FLASH = SPI0", "config", "show"},
			wantContain: []string{"name: IOR8", "mode: OpenDrain", "alias_of: \"NULL\"", "name: ROM_BOOTSTRAP", "bits_per_sec: 1000000", "alias_of: SPI0"},
		},
		{
			name:        "config show dump",
			args:        []string{"--conf", board, "config", "show", "--format", "dump"},
			wantContain: []string{"config.File", "IOR8", "ROM_BOOTSTRAP"},
		},
		{
			name:    "config show bad format",
			args:    []string{"config", "show", "--format", "xml"},
			wantErr: true,
		},
		{
			name:    "override conflicts with file",
			args:    []string{"--conf", board, "--override", "pin RESET_N mode=PushPull", "gpio", "read", "RESET_N"},
			wantErr: true,
		},
		{
			name:    "bad override syntax",
			args:    []string{"--override", "pin = = ;", "gpio", "read", "IOA0"},
			wantErr: true,
		},
		{
			name:    "unknown transport",
			args:    []string{"--transport", "ftdi", "gpio", "read", "IOA0"},
			wantErr: true,
		},
		{
			name:    "missing config file",
			args:    []string{"--conf", filepath.Join(t.TempDir(), "missing.yaml"), "gpio", "read", "IOA0"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(t, tt.args...)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none\nOutput: %s", output)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing expected string: %q\nGot:\n%s", want, output)
				}
			}
		})
	}
}

func TestConfigShowIsLoadable(t *testing.T) {
	board := writeBoard(t)

	output, err := execute(t, "--conf", board, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	dumped := filepath.Join(t.TempDir(), "consolidated.yaml")
	if err := os.WriteFile(dumped, []byte(output), 0o644); err != nil {
		t.Fatal(err)
	}

	again, err := execute(t, "--conf", dumped, "gpio", "read", "RESET_N")
	if err != nil {
		t.Fatalf("reading with consolidated config: %v", err)
	}
	if !strings.Contains(again, "RESET_N (IOR8): high") {
		t.Errorf("unexpected output: %s", again)
	}
}

func TestInterfacesE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping USB enumeration in short mode")
	}

	output, err := execute(t, "interfaces")
	if err != nil {
		t.Fatalf("interfaces: %v", err)
	}
	if !strings.Contains(output, "Simulator (no hardware)") {
		t.Errorf("Output missing simulator entry:\n%s", output)
	}
}
