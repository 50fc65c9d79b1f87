package store

// Kind is the fixed-for-lifetime object variant discriminant (spec.md
// §3.1). It is kept on Object separately from Flags and written as its
// own field in dump and delta records.
type Kind uint8

const (
	KindRoom Kind = iota
	KindThing
	KindExit
	KindPlayer
	KindProgram
	KindGarbage
)

func (k Kind) String() string {
	switch k {
	case KindRoom:
		return "ROOM"
	case KindThing:
		return "THING"
	case KindExit:
		return "EXIT"
	case KindPlayer:
		return "PLAYER"
	case KindProgram:
		return "PROGRAM"
	case KindGarbage:
		return "GARBAGE"
	default:
		return "UNKNOWN"
	}
}

// Flags is the single 32-bit policy/trust/transient word of spec.md
// §3.1. It carries no Kind bits (FlagWizard is bit 0); Kind lives in its
// own Object field and dump.go writes it separately.
type Flags uint32

const (
	FlagWizard Flags = 1 << iota
	FlagDark
	FlagSticky
	FlagLinkOK
	FlagJumpOK
	FlagHaven
	FlagAbode
	FlagMucker
	FlagSmucker
	FlagQuell
	FlagZombie
	FlagVehicle
	FlagYield
	FlagOvert

	// Transient bits below are masked out on serialisation (spec.md §3.1).
	FlagInteractive
	FlagObjectChanged
	FlagSavedDelta
	FlagListener
	FlagReadMode
)

// TransientMask is stripped from Flags whenever an object is written to
// a full dump or delta record (spec.md §4.B "flags (with transient bits
// stripped)").
const TransientMask = FlagInteractive | FlagObjectChanged | FlagSavedDelta | FlagListener | FlagReadMode

// Has reports whether all bits in mask are set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// Persistent returns f with every transient bit cleared.
func (f Flags) Persistent() Flags { return f &^ TransientMask }

// TrustLevel derives the 0-4 trust tier from the WIZARD/MUCKER/SMUCKER
// bit combination, honouring QUELL (spec.md §3.1: "combined they encode
// a 0-4 trust tier, QUELL (suppress wizard trust)").
//
//	0: no bits set
//	1: MUCKER
//	2: MUCKER | SMUCKER
//	3: SMUCKER alone (treated as the pre-wizard "@-priv" tier)
//	4: WIZARD (unless QUELLed, in which case it degrades to 3)
func (f Flags) TrustLevel() int {
	if f.Has(FlagWizard) {
		if f.Has(FlagQuell) {
			return 3
		}
		return 4
	}
	switch {
	case f.Has(FlagSmucker) && !f.Has(FlagMucker):
		return 3
	case f.Has(FlagMucker) && f.Has(FlagSmucker):
		return 2
	case f.Has(FlagMucker):
		return 1
	default:
		return 0
	}
}
