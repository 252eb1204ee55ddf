package png

// adam7Pass places one of the seven reduced images within each 8x8 tile.
type adam7Pass struct {
	xOffset, yOffset, xFactor, yFactor int
}

var adam7Passes = [7]adam7Pass{
	{0, 0, 8, 8},
	{4, 0, 8, 8},
	{0, 4, 4, 8},
	{2, 0, 4, 4},
	{0, 2, 2, 4},
	{1, 0, 2, 2},
	{0, 1, 1, 2},
}

// size returns the pass's reduced width and height for a full image of
// width x height. Either may be zero, in which case the pass is empty.
func (p adam7Pass) size(width, height int) (w, h int) {
	if width > p.xOffset {
		w = (width - p.xOffset + p.xFactor - 1) / p.xFactor
	}
	if height > p.yOffset {
		h = (height - p.yOffset + p.yFactor - 1) / p.yFactor
	}
	return w, h
}

// position maps a pixel in the reduced image to the full image.
func (p adam7Pass) position(px, py int) (x, y int) {
	return p.xOffset + px*p.xFactor, p.yOffset + py*p.yFactor
}
