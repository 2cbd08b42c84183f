package acquire

type compressed struct {
	src    Source
	factor int
	carry  [][]float64 // samples not yet forming a complete group
}

// Compress wraps src so that every factor consecutive samples of a
// channel are averaged into one. Incomplete groups are held until the
// next Poll. A factor of 1 or less returns src unchanged.
func Compress(src Source, factor int) Source {
	if factor <= 1 {
		return src
	}
	return &compressed{
		src:    src,
		factor: factor,
		carry:  emptyBatch(src.Channels()),
	}
}

func (c *compressed) Channels() int { return c.src.Channels() }

func (c *compressed) Poll() ([][]float64, error) {
	batch, err := c.src.Poll()
	if len(batch) != len(c.carry) {
		// Nothing to average, or a malformed batch the sink will reject.
		return batch, err
	}

	out := emptyBatch(len(batch))
	for ch, samples := range batch {
		data := append(c.carry[ch], samples...)
		groups := len(data) / c.factor
		avg := make([]float64, groups)
		for g := range avg {
			var sum float64
			for _, v := range data[g*c.factor : (g+1)*c.factor] {
				sum += v
			}
			avg[g] = sum / float64(c.factor)
		}
		out[ch] = avg
		c.carry[ch] = append([]float64(nil), data[groups*c.factor:]...)
	}
	return out, err
}

func (c *compressed) Close() error { return c.src.Close() }
