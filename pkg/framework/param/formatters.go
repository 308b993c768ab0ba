package param

import (
	"fmt"
	"strconv"
	"strings"
)

// DecibelFormatter formats dB values
func DecibelFormatter(db float64) string {
	if db <= -60 {
		return "-inf dB"
	}
	return fmt.Sprintf("%.1f dB", db)
}

// DecibelParser accepts "-6", "-6 dB" and "-inf".
func DecibelParser(str string) (float64, error) {
	str = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(str), "dB"))
	if strings.EqualFold(str, "-inf") {
		return -96, nil
	}
	return strconv.ParseFloat(str, 64)
}

// FrequencyFormatter formats frequency values with Hz/kHz
func FrequencyFormatter(hz float64) string {
	if hz >= 1000 {
		return fmt.Sprintf("%.2f kHz", hz/1000)
	}
	return fmt.Sprintf("%.1f Hz", hz)
}

// PercentFormatter formats percentage values
func PercentFormatter(value float64) string {
	return fmt.Sprintf("%.0f%%", value)
}

// OnOffFormatter formats boolean as On/Off
func OnOffFormatter(value float64) string {
	if value > 0.5 {
		return "On"
	}
	return "Off"
}
