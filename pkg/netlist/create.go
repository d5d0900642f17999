package netlist

import (
	"fmt"

	"github.com/otcova/analog-simulator/pkg/device"
)

func CreateDevice(elem Element) (device.Device, error) {
	switch elem.Type {
	case "R":
		r := device.NewResistor(elem.Name, elem.Nodes, elem.Value)
		for key, target := range map[string]*float64{"tc1": &r.Tc1, "tc2": &r.Tc2} {
			if s, ok := elem.Params[key]; ok {
				v, err := ParseValue(s)
				if err != nil {
					return nil, fmt.Errorf("%s %s: %w", elem.Name, key, err)
				}
				*target = v
			}
		}
		return r, nil

	case "L":
		return device.NewInductor(elem.Name, elem.Nodes, elem.Value), nil

	case "C":
		return device.NewCapacitor(elem.Name, elem.Nodes, elem.Value), nil

	case "D":
		d := device.NewDiode(elem.Name, elem.Nodes)
		if err := d.SetModelParameters(elem.Model); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return d, nil

	case "V", "I":
		wave, err := createWaveform(elem)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", elem.Name, err)
		}
		if elem.Type == "V" {
			return device.NewVoltageSource(elem.Name, elem.Nodes, wave), nil
		}
		return device.NewCurrentSource(elem.Name, elem.Nodes, wave), nil
	}
	return nil, fmt.Errorf("%w: unsupported device type: %s", ErrSyntax, elem.Type)
}

func createWaveform(elem Element) (device.Waveform, error) {
	args := elem.Params["args"]

	switch elem.Params["type"] {
	case "dc", "":
		return device.DCWave(elem.Value), nil

	case "sin":
		p, err := parseValues(args, "SIN")
		if err != nil {
			return device.Waveform{}, err
		}
		if len(p) < 3 || len(p) > 4 {
			return device.Waveform{}, fmt.Errorf("%w: SIN needs offset amplitude freq [phase]", ErrSyntax)
		}
		phase := 0.0
		if len(p) == 4 {
			phase = p[3]
		}
		return device.SinWave(p[0], p[1], p[2], phase), nil

	case "pulse":
		p, err := parseValues(args, "PULSE")
		if err != nil {
			return device.Waveform{}, err
		}
		if len(p) < 2 || len(p) > 7 {
			return device.Waveform{}, fmt.Errorf("%w: PULSE needs v1 v2 [delay rise fall width period]", ErrSyntax)
		}
		// Missing timing parameters default to zero.
		full := make([]float64, 7)
		copy(full, p)
		for i, name := range []string{"delay", "rise", "fall", "width", "period"} {
			if full[i+2] < 0 {
				return device.Waveform{}, fmt.Errorf("%w: negative PULSE %s", ErrSyntax, name)
			}
		}
		return device.PulseWave(full[0], full[1], full[2], full[3], full[4], full[5], full[6]), nil

	case "pwl":
		p, err := parseValues(args, "PWL")
		if err != nil {
			return device.Waveform{}, err
		}
		if len(p) < 2 || len(p)%2 != 0 {
			return device.Waveform{}, fmt.Errorf("%w: PWL needs time-value pairs", ErrSyntax)
		}
		times := make([]float64, len(p)/2)
		values := make([]float64, len(p)/2)
		for i := range times {
			times[i], values[i] = p[2*i], p[2*i+1]
		}
		wave, err := device.PWLWave(times, values)
		if err != nil {
			return device.Waveform{}, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return wave, nil
	}

	return device.Waveform{}, fmt.Errorf("%w: unsupported source type: %s", ErrSyntax, elem.Params["type"])
}
