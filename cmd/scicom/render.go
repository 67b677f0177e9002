package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mimimalizam/scicom"
	"github.com/mimimalizam/scicom/bridge"
)

// render prints a call result the way the engine's console would. Values
// returned by assignment are not printed.
func render(a bridge.Arg) string {
	v, ok := a.(*bridge.Value)
	if !ok || v == nil {
		return ""
	}
	fv := v.Foreign()
	if fv == nil {
		return ""
	}
	return show(fv, "")
}

func show(v scicom.Value, prefix string) string {
	switch v.Kind() {
	case scicom.KindNull:
		return "NULL"
	case scicom.KindFunction:
		return "<function>"
	case scicom.KindEnvironment:
		return "<environment>"
	case scicom.KindList:
		if v.Len() == 0 {
			return "list()"
		}
		var b strings.Builder
		for i := 0; i < v.Len(); i++ {
			tag := fmt.Sprintf("%s[[%d]]", prefix, i+1)
			if i > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(tag)
			b.WriteByte('\n')
			if e, ok := v.At(i).(scicom.Value); ok {
				b.WriteString(show(e, tag))
			} else {
				b.WriteString("NULL")
			}
		}
		return b.String()
	}
	if v.Len() == 0 {
		return v.Kind().String() + "(0)"
	}
	elems := make([]string, v.Len())
	for i := range elems {
		elems[i] = element(v.At(i))
	}
	return "[1] " + strings.Join(elems, " ")
}

func element(x any) string {
	switch x := x.(type) {
	case nil:
		return "NA"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case int32:
		return strconv.Itoa(int(x))
	case float64:
		switch {
		case math.IsNaN(x):
			return "NaN"
		case math.IsInf(x, 1):
			return "Inf"
		case math.IsInf(x, -1):
			return "-Inf"
		}
		return strconv.FormatFloat(x, 'g', 7, 64)
	case string:
		return strconv.Quote(x)
	}
	return fmt.Sprint(x)
}
