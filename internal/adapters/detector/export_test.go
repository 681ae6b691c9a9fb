package detector

// Detect exposes detect for tests.
func Detect(isTTY bool, ci string) OutputMode {
	return detect(isTTY, ci)
}
