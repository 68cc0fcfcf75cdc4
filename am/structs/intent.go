package structs

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-msgpack/v2/codec"
	"github.com/mitchellh/copystructure"
)

// Flag is the intent flag bitmask (spec.md §6).
type Flag uint32

const (
	FlagNewTask Flag = 1 << iota
	FlagSingleTop
	FlagClearTop
	FlagClearTask
	FlagAppMoveBack
	FlagAppSwitchTask
	FlagMultipleTask
)

func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// SystemTargetPrefix marks a target string as a built-in sink rather
// than a package/component address (spec.md §4.4).
const SystemTargetPrefix = "@target."

const (
	TargetTopResume          = SystemTargetPrefix + "activity.TOP_RESUME"
	TargetApplicationForeground = SystemTargetPrefix + "application.FOREGROUND"
	TargetApplicationHome    = SystemTargetPrefix + "application.HOME"
)

// Standard actions (spec.md §6).
const (
	ActionBootReady     = "action.system.BOOT_READY"
	ActionBootCompleted = "action.system.BOOT_COMPLETED"
	ActionHome          = "action.system.HOME"
	ActionBootGuide     = "action.system.BOOT_GUIDE"
)

// Standard broadcasts (spec.md §6).
const (
	BroadcastAppStart  = "broadcast.system.APP_START"
	BroadcastAppExit   = "broadcast.system.APP_EXIT"
	BroadcastTopActivity = "broadcast.system.TOP_ACTIVITY"
)

// Intent is the addressed message routed by the intent router (spec.md
// §3, §6): five wire fields plus flags and an extra bundle. It is a
// value type by contract — copy it with Clone before mutating a field
// that might still be read by another in-flight orchestration step.
type Intent struct {
	Target string
	Action string
	Data   string
	Flags  Flag
	Extras map[string]interface{}
}

// Clone deep-copies an Intent, including its Extras bundle, via
// copystructure rather than a hand-rolled field-by-field copy — the
// bundle's value set is open-ended (int, double, bool, string, ...) and
// copystructure already handles that generically.
func (i *Intent) Clone() *Intent {
	if i == nil {
		return nil
	}
	raw, err := copystructure.Copy(i)
	if err != nil {
		// Extras held a value copystructure can't walk (e.g. a chan or
		// func smuggled in by a caller); fall back to a shallow copy of
		// the known fields, sharing the Extras map, which is still
		// correct for the common case of read-only redelivery.
		return &Intent{Target: i.Target, Action: i.Action, Data: i.Data, Flags: i.Flags, Extras: i.Extras}
	}
	return raw.(*Intent)
}

// TargetPackage splits Target into its package and component parts
// ("pkg[/cls]" per spec.md §4.4).
func (i *Intent) TargetPackage() (pkg, class string) {
	if idx := strings.IndexByte(i.Target, '/'); idx >= 0 {
		return i.Target[:idx], i.Target[idx+1:]
	}
	return i.Target, ""
}

func (i *Intent) String() string {
	return fmt.Sprintf("Intent{target=%q action=%q data=%q flags=%#x}", i.Target, i.Action, i.Data, i.Flags)
}

// wireIntent is the msgpack-serializable shape of an Intent; kept
// distinct from Intent so the wire format (spec.md §6: "five fields")
// stays pinned even if in-memory bookkeeping fields are ever added to
// Intent itself.
type wireIntent struct {
	Target string
	Action string
	Data   string
	Flags  uint32
	Extras map[string]interface{}
}

var mpHandle codec.MsgpackHandle

// EncodeIntent serializes an Intent to its wire bytes.
func EncodeIntent(i *Intent) ([]byte, error) {
	w := wireIntent{Target: i.Target, Action: i.Action, Data: i.Data, Flags: uint32(i.Flags), Extras: i.Extras}
	var buf []byte
	enc := codec.NewEncoderBytes(&buf, &mpHandle)
	if err := enc.Encode(&w); err != nil {
		return nil, fmt.Errorf("am: encode intent: %w", err)
	}
	return buf, nil
}

// DecodeIntent deserializes wire bytes into an Intent.
func DecodeIntent(b []byte) (*Intent, error) {
	var w wireIntent
	dec := codec.NewDecoderBytes(b, &mpHandle)
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("am: decode intent: %w", err)
	}
	return &Intent{Target: w.Target, Action: w.Action, Data: w.Data, Flags: Flag(w.Flags), Extras: w.Extras}, nil
}
