package midi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

const (
	subclassMIDIStreaming gousb.Class = 0x03
	usbWriteTimeout                   = 100 * time.Millisecond
)

// usbOut is an opened MIDIStreaming OUT endpoint and everything that keeps it alive
type usbOut struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	ep   *gousb.OutEndpoint
}

// OpenUSB opens the USB-MIDI device vid:pid and sends on cable 0 of its first MIDIStreaming OUT endpoint
func OpenUSB(vid, pid uint16) (*Transport, error) {
	ctx := gousb.NewContext()
	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("usb: %w", err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("usb: device %04x:%04x not found", vid, pid)
	}
	// not supported everywhere
	_ = dev.SetAutoDetach(true)

	u := &usbOut{ctx: ctx, dev: dev}
	if err := u.claim(); err != nil {
		u.Close()
		return nil, err
	}
	t := NewWriterTransport(fmt.Sprintf("usb:%04x:%04x", vid, pid), u, USBPacket(0))
	t.log.Info().Int("ep", u.ep.Desc.Number).Msg("USB MIDI ready")
	return t, nil
}

func (u *usbOut) claim() error {
	cfg, err := u.dev.Config(1)
	if err != nil {
		return fmt.Errorf("usb: get config: %w", err)
	}
	u.cfg = cfg

	for _, desc := range cfg.Desc.Interfaces {
		for _, alt := range desc.AltSettings {
			if alt.Class != gousb.ClassAudio || alt.SubClass != subclassMIDIStreaming {
				continue
			}
			num, ok := outEndpoint(alt)
			if !ok {
				continue
			}
			intf, err := cfg.Interface(desc.Number, alt.Alternate)
			if err != nil {
				return fmt.Errorf("usb: claim interface %d: %w", desc.Number, err)
			}
			u.intf = intf
			ep, err := intf.OutEndpoint(num)
			if err != nil {
				return fmt.Errorf("usb: open OUT endpoint %d: %w", num, err)
			}
			u.ep = ep
			return nil
		}
	}
	return errors.New("usb: no MIDIStreaming OUT endpoint")
}

func outEndpoint(alt gousb.InterfaceSetting) (int, bool) {
	for _, ep := range alt.Endpoints {
		if ep.Direction != gousb.EndpointDirectionOut {
			continue
		}
		if ep.TransferType == gousb.TransferTypeBulk || ep.TransferType == gousb.TransferTypeInterrupt {
			return ep.Number, true
		}
	}
	return 0, false
}

func (u *usbOut) Write(pkt []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), usbWriteTimeout)
	defer cancel()
	n, err := u.ep.WriteContext(ctx, pkt)
	if err != nil {
		return n, fmt.Errorf("usb write: %w", err)
	}
	return n, nil
}

func (u *usbOut) Close() error {
	if u.intf != nil {
		u.intf.Close()
	}
	var errs []error
	if u.cfg != nil {
		errs = append(errs, u.cfg.Close())
	}
	if u.dev != nil {
		errs = append(errs, u.dev.Close())
	}
	errs = append(errs, u.ctx.Close())
	return errors.Join(errs...)
}
