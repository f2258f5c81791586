package midi

import "gitlab.com/gomidi/midi/v2"

// USBPacket frames channel messages as 4-byte USB-MIDI event packets on cable.
// The code index number is the status nibble, 0xB for control change and 0xC for program change.
func USBPacket(cable uint8) Framer {
	return func(msg midi.Message) []byte {
		b := msg.Bytes()
		pkt := make([]byte, 4)
		if len(b) == 0 {
			return pkt
		}
		pkt[0] = (cable&0x0F)<<4 | b[0]>>4
		copy(pkt[1:], b)
		return pkt
	}
}
