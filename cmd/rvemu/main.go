// Command rvemu runs a flat RISC-V machine-code image in bare-machine
// (privileged) mode, starting the hart at Machine privilege with the
// whole of guest RAM identity mapped until the guest itself turns on
// paging via satp.
package main

import (
	"errors"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/bassosimone/rv64emu/hart"
	"github.com/bassosimone/rv64emu/logging"
	"github.com/bassosimone/rv64emu/memory"
)

func main() {
	optFile := getopt.StringLong("file", 'f', "", "flat machine-code image to run")
	optMemMB := getopt.Uint64Long("mem", 'm', 64, "guest RAM size in MiB")
	optEntry := getopt.Uint64Long("entry", 'e', 0, "entry program counter")
	optXlen := getopt.Uint64Long("xlen", 'x', 64, "XLEN: 32 or 64")
	optLog := getopt.StringLong("log", 'l', "", "log file")
	optDebug := getopt.BoolLong("debug", 'd', "enable debug-level logging to stderr")
	optHelp := getopt.BoolLong("help", 'h', "show usage")
	getopt.Parse()

	if *optHelp || *optFile == "" {
		getopt.Usage()
		os.Exit(0)
	}

	var logFile *os.File
	if *optLog != "" {
		f, err := os.Create(*optLog)
		if err != nil {
			slog.Error("rvemu: opening log file", "error", err)
			os.Exit(1)
		}
		logFile = f
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	logger := slog.New(logging.NewHandler(logFile, level, *optDebug))
	slog.SetDefault(logger)

	xlen := hart.Xlen32
	if *optXlen == 64 {
		xlen = hart.Xlen64
	}

	image, err := os.ReadFile(*optFile)
	if err != nil {
		logger.Error("rvemu: reading image", "error", err)
		os.Exit(1)
	}

	mem := memory.NewFlatMemory(*optMemMB * 1024 * 1024)
	if err := mem.WriteAt(0, image); err != nil {
		logger.Error("rvemu: loading image into guest RAM", "error", err)
		os.Exit(1)
	}

	h := hart.InitSystemMode(xlen, mem)
	h.SetPC(*optEntry)

	logger.Info("rvemu: starting", "xlen", xlen, "entry", *optEntry, "mem_mib", *optMemMB)
	err = h.Run()
	switch {
	case errors.Is(err, hart.ErrGuestExited):
		logger.Info("rvemu: guest exited", "code", h.ExitCode())
		os.Exit(int(h.ExitCode()))
	case err != nil:
		logger.Error("rvemu: fatal", "error", err)
		os.Exit(1)
	}
}
