package netlist

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type AnalysisType int

const (
	AnalysisOP AnalysisType = iota
	AnalysisTRAN
	AnalysisDC
)

func (a AnalysisType) String() string {
	switch a {
	case AnalysisOP:
		return "op"
	case AnalysisTRAN:
		return "tran"
	case AnalysisDC:
		return "dc"
	}
	return "unknown"
}

type TranParam struct {
	TStep  float64 // timestep
	TStop  float64 // stop time
	TStart float64 // first stored time point
	TMax   float64 // max timestep
	UIC    bool    // skip the initial operating point
}

// DCParam describes a sweep. Source2 is empty for a single sweep.
type DCParam struct {
	Source1    string
	Start1     float64
	Stop1      float64
	Increment1 float64
	Source2    string
	Start2     float64
	Stop2      float64
	Increment2 float64
}

func (p DCParam) Nested() bool {
	return p.Source2 != ""
}

type NetlistData struct {
	Elements  []Element        // Circuit elements
	Nodes     map[string]int   // Node name and order of first appearance
	Models    map[string]Model // .model cards by lower-case name
	Analysis  AnalysisType
	TranParam TranParam
	DCParam   DCParam
	Title     string
}

type Element struct {
	Type   string             // R, L, C, V, I, D
	Name   string             // Part name
	Nodes  []string           // Node names
	Value  float64            // Part value, or DC level of a source
	Params map[string]string  // Source waveform and extra parameters
	Model  map[string]float64 // Resolved model parameters (D)
}

// Model is a .model card, e.g. ".model D1N4148 D(IS=2.52n N=1.752)".
type Model struct {
	Type   string
	Name   string
	Params map[string]float64
}

var (
	spaceRe = regexp.MustCompile(`\s+`)
	valueRe = regexp.MustCompile(`^([-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?)([a-zA-Z]*)$`)
)

var unitMap = map[byte]float64{
	't': 1e12,  // tera
	'g': 1e9,   // giga
	'k': 1e3,   // kilo
	'm': 1e-3,  // milli
	'u': 1e-6,  // micro
	'n': 1e-9,  // nano
	'p': 1e-12, // pico
	'f': 1e-15, // femto
}

// Parse reads a SPICE netlist. The first line is always the title.
func Parse(input string) (*NetlistData, error) {
	netlistData, err := parse(input)
	if err != nil {
		return nil, err
	}
	if err := resolveModels(netlistData); err != nil {
		return nil, err
	}
	return netlistData, nil
}

func parse(input string) (*NetlistData, error) {
	scanner := bufio.NewScanner(strings.NewReader(input))
	netlistData := &NetlistData{
		Nodes:  make(map[string]int),
		Models: make(map[string]Model),
	}

	if scanner.Scan() {
		netlistData.Title = strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "*"))
	}

	var currentLine string
	currentLineNo := 0
	lineNo := 1

	flush := func() error {
		if currentLine == "" {
			return nil
		}
		err := parseLine(netlistData, currentLine)
		currentLine = ""
		if err != nil {
			return fmt.Errorf("line %d: %w", currentLineNo, err)
		}
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Inline comments
		if idx := strings.Index(line, ";"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}

		if len(line) == 0 || strings.HasPrefix(line, "*") {
			continue
		}

		if strings.HasPrefix(line, "+") {
			if currentLine == "" {
				return nil, fmt.Errorf("line %d: %w: continuation without a statement", lineNo, ErrSyntax)
			}
			currentLine += " " + strings.TrimSpace(line[1:])
			continue
		}

		if err := flush(); err != nil {
			return nil, err
		}

		if strings.EqualFold(line, ".end") {
			return netlistData, nil
		}
		currentLine = line
		currentLineNo = lineNo
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading netlist: %w", err)
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return netlistData, nil
}

func parseLine(netlistData *NetlistData, line string) error {
	line = spaceRe.ReplaceAllString(line, " ")

	if strings.HasPrefix(line, ".") {
		return parseDotOperator(netlistData, line)
	}

	element, err := parseElement(line)
	if err != nil {
		return err
	}

	for _, e := range netlistData.Elements {
		if strings.EqualFold(e.Name, element.Name) {
			return fmt.Errorf("%w: duplicate element %s", ErrSyntax, element.Name)
		}
	}

	netlistData.Elements = append(netlistData.Elements, *element)
	for _, node := range element.Nodes {
		if _, exists := netlistData.Nodes[node]; !exists {
			netlistData.Nodes[node] = len(netlistData.Nodes)
		}
	}
	return nil
}

// resolveModels attaches model parameters to diodes. Cards may appear
// after the elements that use them. Inline key=value pairs win.
func resolveModels(netlistData *NetlistData) error {
	for i := range netlistData.Elements {
		elem := &netlistData.Elements[i]
		if elem.Type != "D" {
			continue
		}

		elem.Model = make(map[string]float64)
		if name, ok := elem.Params["model"]; ok {
			model, exists := netlistData.Models[strings.ToLower(name)]
			if !exists {
				return fmt.Errorf("%w: undefined model %s for %s", ErrSyntax, name, elem.Name)
			}
			if model.Type != elem.Type {
				return fmt.Errorf("%w: model %s is type %s, %s needs %s", ErrSyntax, name, model.Type, elem.Name, elem.Type)
			}
			for k, v := range model.Params {
				elem.Model[k] = v
			}
		}

		for k, s := range elem.Params {
			if k == "model" {
				continue
			}
			v, err := ParseValue(s)
			if err != nil {
				return fmt.Errorf("%s %s: %w", elem.Name, k, err)
			}
			elem.Model[k] = v
		}
	}
	return nil
}

// Parse .op, .tran, .dc, .model
func parseDotOperator(netlistData *NetlistData, line string) error {
	fields := strings.Fields(line)

	switch strings.ToLower(fields[0]) {
	case ".op":
		netlistData.Analysis = AnalysisOP

	case ".tran":
		netlistData.Analysis = AnalysisTRAN
		return parseTran(&netlistData.TranParam, fields[1:])

	case ".dc":
		netlistData.Analysis = AnalysisDC
		return parseDC(&netlistData.DCParam, fields[1:])

	case ".model":
		return parseModel(netlistData, fields[1:])

	default:
		return fmt.Errorf("%w: unsupported directive %s", ErrSyntax, fields[0])
	}

	return nil
}

func parseTran(p *TranParam, fields []string) error {
	var values []float64
	for _, f := range fields {
		if strings.EqualFold(f, "uic") {
			p.UIC = true
			continue
		}
		v, err := ParseValue(f)
		if err != nil {
			return err
		}
		values = append(values, v)
	}

	if len(values) < 2 {
		return fmt.Errorf("%w: .tran needs at least tstep and tstop", ErrSyntax)
	}
	if len(values) > 4 {
		return fmt.Errorf("%w: .tran takes at most tstep tstop tstart tmax", ErrSyntax)
	}

	p.TStep, p.TStop = values[0], values[1]
	if len(values) > 2 {
		p.TStart = values[2]
	}
	if len(values) > 3 {
		p.TMax = values[3]
	}

	if p.TStep <= 0 || p.TStop <= 0 {
		return fmt.Errorf("%w: .tran tstep and tstop must be positive", ErrSyntax)
	}
	if p.TStart < 0 || p.TStart >= p.TStop {
		return fmt.Errorf("%w: .tran tstart %g outside [0, %g)", ErrSyntax, p.TStart, p.TStop)
	}
	if p.TMax == 0 {
		p.TMax = p.TStep
	}
	return nil
}

func parseDC(p *DCParam, fields []string) error {
	if len(fields) != 4 && len(fields) != 8 {
		return fmt.Errorf("%w: .dc needs src start stop incr [src2 start2 stop2 incr2]", ErrSyntax)
	}

	var err error
	p.Source1 = fields[0]
	if p.Start1, p.Stop1, p.Increment1, err = parseSweep(fields[1:4]); err != nil {
		return err
	}

	if len(fields) == 8 {
		p.Source2 = fields[4]
		if p.Start2, p.Stop2, p.Increment2, err = parseSweep(fields[5:8]); err != nil {
			return err
		}
	}
	return nil
}

func parseSweep(fields []string) (start, stop, incr float64, err error) {
	if start, err = ParseValue(fields[0]); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid start value: %w", err)
	}
	if stop, err = ParseValue(fields[1]); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid stop value: %w", err)
	}
	if incr, err = ParseValue(fields[2]); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid increment value: %w", err)
	}
	if incr == 0 {
		return 0, 0, 0, fmt.Errorf("%w: zero sweep increment", ErrSyntax)
	}
	if (stop-start)*incr < 0 {
		return 0, 0, 0, fmt.Errorf("%w: increment %g never reaches %g from %g", ErrSyntax, incr, stop, start)
	}
	return start, stop, incr, nil
}

// parseModel reads "name type(k=v ...)", with or without parentheses.
func parseModel(netlistData *NetlistData, fields []string) error {
	if len(fields) < 2 {
		return fmt.Errorf("%w: .model needs a name and a type", ErrSyntax)
	}

	rest := strings.Join(fields[1:], " ")
	rest = strings.NewReplacer("(", " ", ")", " ").Replace(rest)
	words := strings.Fields(rest)
	if len(words) == 0 {
		return fmt.Errorf("%w: .model %s has no type", ErrSyntax, fields[0])
	}

	model := Model{
		Name:   fields[0],
		Type:   strings.ToUpper(words[0]),
		Params: make(map[string]float64),
	}
	if model.Type != "D" {
		return fmt.Errorf("%w: unsupported model type %s", ErrSyntax, words[0])
	}

	for _, pair := range words[1:] {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%w: model %s: expected key=value, got %q", ErrSyntax, model.Name, pair)
		}
		value, err := ParseValue(val)
		if err != nil {
			return fmt.Errorf("model %s %s: %w", model.Name, key, err)
		}
		model.Params[strings.ToLower(key)] = value
	}

	key := strings.ToLower(model.Name)
	if _, exists := netlistData.Models[key]; exists {
		return fmt.Errorf("%w: duplicate model %s", ErrSyntax, model.Name)
	}
	netlistData.Models[key] = model
	return nil
}

func parseElement(line string) (*Element, error) {
	fields := strings.Fields(line)
	minFields := 4
	if strings.EqualFold(fields[0][:1], "D") {
		minFields = 3
	}
	if len(fields) < minFields {
		return nil, fmt.Errorf("%w: invalid element format: %s", ErrSyntax, line)
	}

	elem := &Element{
		Name:   fields[0],
		Type:   strings.ToUpper(fields[0][:1]),
		Nodes:  []string{fields[1], fields[2]},
		Params: make(map[string]string),
	}
	if elem.Nodes[0] == elem.Nodes[1] {
		return nil, fmt.Errorf("%w: %s connects node %s to itself", ErrSyntax, elem.Name, elem.Nodes[0])
	}

	switch elem.Type {
	case "R", "C", "L":
		value, err := ParseValue(fields[3])
		if err != nil {
			return nil, err
		}
		elem.Value = value

		// Optional key=value pairs, e.g. tc1=1m
		for _, f := range fields[4:] {
			key, val, ok := strings.Cut(f, "=")
			if !ok {
				return nil, fmt.Errorf("%w: unexpected field %q for %s", ErrSyntax, f, elem.Name)
			}
			elem.Params[strings.ToLower(key)] = val
		}
		if elem.Type == "R" && elem.Value == 0 {
			return nil, fmt.Errorf("%w: resistor %s has zero resistance", ErrSyntax, elem.Name)
		}
		return elem, nil

	case "V", "I":
		return parseSource(elem, fields[3:])

	case "D":
		// D name anode cathode [model] [key=value ...]
		for i, f := range fields[3:] {
			key, val, ok := strings.Cut(f, "=")
			if !ok {
				if i != 0 {
					return nil, fmt.Errorf("%w: unexpected field %q for %s", ErrSyntax, f, elem.Name)
				}
				elem.Params["model"] = f
				continue
			}
			elem.Params[strings.ToLower(key)] = val
		}
		return elem, nil
	}

	return nil, fmt.Errorf("%w: unsupported element %s", ErrSyntax, elem.Name)
}

// parseSource handles "DC v", a bare value, and SIN/PULSE/PWL(...) forms.
func parseSource(elem *Element, fields []string) (*Element, error) {
	remaining := strings.Join(fields, " ")
	remaining = strings.ReplaceAll(remaining, "(", " ( ")
	remaining = strings.ReplaceAll(remaining, ")", " ) ")
	words := strings.Fields(remaining)

	kind := strings.ToUpper(words[0])
	switch kind {
	case "DC":
		if len(words) < 2 {
			return nil, fmt.Errorf("%w: missing DC value for %s", ErrSyntax, elem.Name)
		}
		value, err := ParseValue(words[1])
		if err != nil {
			return nil, err
		}
		elem.Params["type"] = "dc"
		elem.Value = value

	case "SIN", "PULSE", "PWL":
		args := strings.Trim(strings.Join(words[1:], " "), "() ")
		if args == "" {
			return nil, fmt.Errorf("%w: missing %s parameters for %s", ErrSyntax, kind, elem.Name)
		}
		elem.Params["type"] = strings.ToLower(kind)
		elem.Params["args"] = args

	default:
		value, err := ParseValue(words[0])
		if err != nil {
			return nil, fmt.Errorf("unsupported source type %s: %w", words[0], err)
		}
		elem.Params["type"] = "dc"
		elem.Value = value
	}

	return elem, nil
}

// ParseValue converts a SPICE number with an optional scale suffix
// ("4.7k", "10uF", "2meg") to a float.
func ParseValue(val string) (float64, error) {
	matches := valueRe.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, fmt.Errorf("%w: invalid value format: %s", ErrSyntax, val)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSyntax, err)
	}

	suffix := strings.ToLower(matches[2])
	switch {
	case suffix == "":
	case strings.HasPrefix(suffix, "meg"):
		num *= 1e6
	default:
		// Unknown leading letters are units (V, A, s, ohm).
		if multiplier, ok := unitMap[suffix[0]]; ok {
			num *= multiplier
		}
	}

	return num, nil
}

func parseValues(params string, what string) ([]float64, error) {
	fields := strings.Fields(params)
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := ParseValue(f)
		if err != nil {
			return nil, fmt.Errorf("invalid %s parameter %d: %w", what, i+1, err)
		}
		values[i] = v
	}
	return values, nil
}
