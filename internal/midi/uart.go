package midi

import (
	"fmt"

	"go.bug.st/serial"
)

// UARTBaud is the MIDI 1.0 DIN bit rate
const UARTBaud = 31250

// OpenUART opens a serial MIDI OUT at 31250 8N1
func OpenUART(device string) (*Transport, error) {
	mode := &serial.Mode{
		BaudRate: UARTBaud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open uart %s: %w", device, err)
	}
	t := NewWriterTransport("uart:"+device, port, RawBytes)
	t.log.Info().Str("device", device).Int("baud", UARTBaud).Msg("UART MIDI OUT ready")
	return t, nil
}
