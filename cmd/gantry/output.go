package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/gantry/pkg/domain"
	"golang.org/x/term"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSlot(w io.Writer, ss domain.SlotState) {
	fmt.Fprintf(w, "Slot %s: %s\n", ss.SlotID, strings.ToUpper(string(ss.Status)))
	if ss.Error != "" {
		fmt.Fprintf(w, "  %s\n", ss.Error)
	}
}

// gateFailure turns a slot failed by its own gates into a command error, so
// scripted drivers see a non-zero exit.
func gateFailure(ss domain.SlotState) error {
	if ss.Status == domain.SlotFailed {
		return fmt.Errorf("slot '%s' failed: %s", ss.SlotID, ss.Error)
	}
	return nil
}
