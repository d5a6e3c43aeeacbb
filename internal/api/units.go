package api

// The API speaks tenths of a degree Fahrenheit; the CLI defaults to
// Celsius for display and input.

// FToC converts Fahrenheit to Celsius.
func FToC(f float64) float64 {
	return (f - 32) * 5 / 9
}

// CToF converts Celsius to Fahrenheit.
func CToF(c float64) float64 {
	return c*9/5 + 32
}

// TenthsToF converts the API's tenths-of-°F integers to degrees Fahrenheit.
func TenthsToF(tenths int64) float64 {
	return float64(tenths) / 10
}

// FToTenths converts degrees Fahrenheit to the API's tenths integers.
func FToTenths(f float64) int {
	return int(f * 10)
}
