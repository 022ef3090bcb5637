package thumbnail

// ComputeTargetSize halves both dimensions together until neither exceeds
// maxPixel, truncating only once at the end. Dimensions already within the
// bound, or any size when maxPixel is not positive, are returned unchanged.
func ComputeTargetSize(width, height, maxPixel int) (int, int) {
	if maxPixel <= 0 {
		return width, height
	}

	w, h := float64(width), float64(height)
	bound := float64(maxPixel)

	for w > bound || h > bound {
		w /= 2
		h /= 2
	}

	return int(w), int(h)
}
