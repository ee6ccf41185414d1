// Command rvuser loads a RISC-V Linux ELF64 executable and runs it under
// user-mode emulation, trapping ecall into the host syscall bridge rather
// than a real kernel.
package main

import (
	"errors"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/bassosimone/rv64emu/hart"
	"github.com/bassosimone/rv64emu/loader"
	"github.com/bassosimone/rv64emu/logging"
	"github.com/bassosimone/rv64emu/memory"
	"github.com/bassosimone/rv64emu/usermode"
)

const (
	guestRAMSize = 256 << 20
	stackTop     = guestRAMSize - 0x1000
)

func main() {
	optFile := getopt.StringLong("file", 'f', "", "ELF64 RISC-V executable to run")
	optLog := getopt.StringLong("log", 'l', "", "log file")
	optDebug := getopt.BoolLong("debug", 'd', "enable debug-level logging to stderr")
	optHelp := getopt.BoolLong("help", 'h', "show usage")
	getopt.Parse()
	args := getopt.Args()

	if *optHelp || *optFile == "" {
		getopt.Usage()
		os.Exit(0)
	}

	var logFile *os.File
	if *optLog != "" {
		f, err := os.Create(*optLog)
		if err != nil {
			slog.Error("rvuser: opening log file", "error", err)
			os.Exit(1)
		}
		logFile = f
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	logger := slog.New(logging.NewHandler(logFile, level, *optDebug))
	slog.SetDefault(logger)

	fp, err := os.Open(*optFile)
	if err != nil {
		logger.Error("rvuser: opening executable", "error", err)
		os.Exit(1)
	}
	defer fp.Close()

	mem := memory.NewFlatMemory(guestRAMSize)
	argv := append([]string{*optFile}, args...)
	envp := os.Environ()

	image, err := loader.Load(fp, mem, stackTop, argv, envp)
	if err != nil {
		logger.Error("rvuser: loading executable", "error", err)
		os.Exit(1)
	}

	rt := usermode.NewRuntime(mem, loader.BrkBase(image.Highest), guestRAMSize/2)
	rt.Argv = argv
	rt.Envp = envp

	h := hart.InitUserMode(hart.Xlen64, rt)
	h.SetPC(image.Entry)
	h.SetXRegister(2, image.SP) // sp

	logger.Info("rvuser: starting", "entry", image.Entry, "sp", image.SP, "file", *optFile)
	err = h.Run()
	switch {
	case errors.Is(err, hart.ErrGuestExited):
		logger.Info("rvuser: guest exited", "code", h.ExitCode())
		os.Exit(int(h.ExitCode()))
	case err != nil:
		logger.Error("rvuser: fatal", "error", err)
		os.Exit(1)
	}
}
