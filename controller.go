package midifile

// Common controller numbers for ControlChange messages.
const (
	ControllerBankSelect          uint8 = 0
	ControllerModWheel            uint8 = 1
	ControllerBreath              uint8 = 2
	ControllerFoot                uint8 = 4
	ControllerPortamentoTime      uint8 = 5
	ControllerDataEntry           uint8 = 6
	ControllerMainVolume          uint8 = 7
	ControllerBalance             uint8 = 8
	ControllerPan                 uint8 = 10
	ControllerExpression          uint8 = 11
	ControllerEffectControl1      uint8 = 12
	ControllerEffectControl2      uint8 = 13
	ControllerSustain             uint8 = 64
	ControllerPortamento          uint8 = 65
	ControllerSostenuto           uint8 = 66
	ControllerSoftPedal           uint8 = 67
	ControllerLegato              uint8 = 68
	ControllerHold2               uint8 = 69
	ControllerAllSoundOff         uint8 = 120
	ControllerResetAllControllers uint8 = 121
	ControllerLocalControl        uint8 = 122
	ControllerAllNotesOff         uint8 = 123
)
