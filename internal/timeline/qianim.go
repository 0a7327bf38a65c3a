package timeline

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// ParseQiAnim parses a QiAnim document in the given format.
//
// FormatUnknown tries JSON first and falls back to XML. Values are returned
// in the document's own unit.
//
// Parameters:
//   - data: Raw document bytes
//   - format: Result of SniffFormat, or FormatUnknown
//
// Returns:
//   - *Timeline: Parsed curves (possibly empty), Format set to the family used
//   - error: Wrapped ErrParse when the document cannot be read
func ParseQiAnim(data []byte, format Format) (*Timeline, error) {
	switch format {
	case FormatQiAnimJSON:
		return parseQiAnimJSON(data)
	case FormatQiAnimXML:
		return parseQiAnimXML(data)
	case FormatXAR:
		return nil, fmt.Errorf("%w: behavior graph given to QiAnim parser", ErrParse)
	}

	tl, jsonErr := parseQiAnimJSON(data)
	if jsonErr == nil {
		return tl, nil
	}
	tl, xmlErr := parseQiAnimXML(data)
	if xmlErr == nil {
		return tl, nil
	}
	return nil, errors.Join(jsonErr, xmlErr)
}

// parseQiAnimJSON reads {"fps":..,"actuators":[{"name":..,"keys":[..]}]}.
//
// A key is [t, v], {"t"|"time": t, "v"|"value"|"angle": v} or
// {"frame": f, "value": v}. Keys without a readable value are skipped.
func parseQiAnimJSON(data []byte) (*Timeline, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid QiAnim JSON", ErrParse)
	}
	doc := gjson.ParseBytes(data)
	actuators := doc.Get("actuators")
	if !doc.IsObject() || !actuators.Exists() {
		return nil, fmt.Errorf("%w: QiAnim JSON must be an object with an actuators list", ErrParse)
	}
	if !actuators.IsArray() {
		return nil, fmt.Errorf("%w: actuators is not a list", ErrParse)
	}

	fps := DefaultFPS
	if v := doc.Get("fps"); v.Exists() {
		fps = validFPS(v.Float())
	}

	tl := &Timeline{Format: FormatQiAnimJSON}
	for _, act := range actuators.Array() {
		name := act.Get("name").String()
		if name == "" {
			continue
		}
		var times, values []float64
		for _, key := range act.Get("keys").Array() {
			t, v, ok := jsonKey(key, fps)
			if !ok {
				continue
			}
			times = append(times, t)
			values = append(values, v)
		}
		if len(times) == 0 {
			continue
		}
		tl.Curves = append(tl.Curves, JointCurve{
			Actuator: name,
			Times:    NormalizeTimes(times),
			Values:   values,
		})
	}
	return tl, nil
}

func jsonKey(key gjson.Result, fps float64) (t, v float64, ok bool) {
	if key.IsArray() {
		pair := key.Array()
		if len(pair) < 2 || !isNumber(pair[0]) || !isNumber(pair[1]) {
			return 0, 0, false
		}
		return pair[0].Float(), pair[1].Float(), true
	}
	if !key.IsObject() {
		return 0, 0, false
	}

	value, found := firstNumber(key, "v", "value", "angle")
	if !found {
		return 0, 0, false
	}
	if tv, found := firstNumber(key, "t", "time"); found {
		return tv, value, true
	}
	if frame, found := firstNumber(key, "frame"); found {
		return frame / fps, value, true
	}
	return 0, value, true
}

func firstNumber(obj gjson.Result, fields ...string) (float64, bool) {
	for _, f := range fields {
		if r := obj.Get(f); r.Exists() && isNumber(r) {
			return r.Float(), true
		}
	}
	return 0, false
}

// isNumber accepts JSON numbers and numeric strings.
func isNumber(r gjson.Result) bool {
	switch r.Type {
	case gjson.Number:
		return true
	case gjson.String:
		_, err := strconv.ParseFloat(r.Str, 64)
		return err == nil
	default:
		return false
	}
}

// parseQiAnimXML reads <ActuatorCurve actuator=".."><Key .../></ActuatorCurve>
// at any depth. Keys carry time/angle or frame/value; frames are divided by
// the root fps (plain or editor:fps), else the first Timeline fps, else 25.
func parseQiAnimXML(data []byte) (*Timeline, error) {
	root, err := decodeXML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid QiAnim XML: %v", ErrParse, err)
	}

	fps := 0.0
	if raw, ok := root.attr("fps"); ok {
		fps, _ = strconv.ParseFloat(raw, 64)
	}
	if fps <= 0 {
		for _, tln := range root.find("Timeline") {
			if raw, ok := tln.attr("fps"); ok {
				fps, _ = strconv.ParseFloat(raw, 64)
				break
			}
		}
	}
	fps = validFPS(fps)

	tl := &Timeline{Format: FormatQiAnimXML}
	for _, curve := range root.find("ActuatorCurve") {
		name, _ := curve.attr("actuator")
		if name == "" {
			continue
		}
		var times, values []float64
		for _, key := range curve.children("Key") {
			t, v, ok := xmlKey(key, fps)
			if !ok {
				continue
			}
			times = append(times, t)
			values = append(values, v)
		}
		if len(times) == 0 {
			continue
		}
		tl.Curves = append(tl.Curves, JointCurve{
			Actuator: name,
			Times:    NormalizeTimes(times),
			Values:   values,
		})
	}
	return tl, nil
}

func xmlKey(key *xmlNode, fps float64) (t, v float64, ok bool) {
	v, ok = floatAttr(key, "angle", "value")
	if !ok {
		return 0, 0, false
	}
	if _, has := key.attr("time"); has {
		t, ok = floatAttr(key, "time")
		return t, v, ok
	}
	if _, has := key.attr("frame"); has {
		frame, ok := floatAttr(key, "frame")
		return frame / fps, v, ok
	}
	return 0, v, true
}

func floatAttr(n *xmlNode, names ...string) (float64, bool) {
	for _, name := range names {
		raw, ok := n.attr(name)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
