package ingest

// SplitText cuts text into fixed-size sliding windows of size runes,
// each window starting overlap runes before the end of the previous one.
// Stripping the first overlap runes from every chunk after the first and
// concatenating reproduces the input exactly.
func SplitText(text string, size int, overlap int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
