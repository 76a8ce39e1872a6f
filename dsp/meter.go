package dsp

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/viterin/vek/vek32"
)

type (
	// Decibel is a level in dB; loudness values are in LUFS.
	Decibel float32

	// Meter measures the K-weighted loudness and the true peak of a stereo
	// signal. Audio is analyzed in blocks of 100 ms: momentary loudness spans
	// the last 4 blocks and short-term loudness the last 30. The weighting
	// coefficients are those of 44.1 kHz.
	Meter struct {
		blockLen int
		pending  [2][]float32

		weighting [2][2]*biquad.Section
		powers    [2]RingBuffer[float32] // 0 = momentary, 1 = short-term
		blocks    []float32              // momentary powers, for the integrated loudness
		max       [2]float32

		peak       [2]float32
		oversample [2]oversampler

		tmp, tmp2 []float32
		gate      []bool
	}

	// Loudness is a snapshot of a Meter.
	Loudness struct {
		Momentary    Decibel
		ShortTerm    Decibel
		MaxMomentary Decibel
		MaxShortTerm Decibel
		Integrated   Decibel
		TruePeak     [2]Decibel
	}

	oversampler struct {
		history   [11]float32
		tmp, tmp2 []float32
	}
)

// maxMeterBlocks is one hour of 100 ms blocks.
const maxMeterBlocks = 10 * 60 * 60

// K-weighting for 44.1 kHz; kOffset makes up for the slightly above unity
// gain of the weighting at 1 kHz.
var (
	kWeighting = [2]biquad.Coefficients{
		{B0: 1.5308412300503476, B1: -2.6509799951547293, B2: 1.1690790799215869, A1: -1.6636551132560204, A2: 0.7125954280732254},
		{B0: 0.9995600645425144, B1: -1.9991201290850289, B2: 0.9995600645425144, A1: -1.9891696736297957, A2: 0.9891990357870394},
	}
	kOffset float32 = -0.691
)

// 4x oversampling polyphase filter of ITU-R BS.1770 annex 2.
var oversamplingCoeffs = [4][12]float32{
	{0.0017089843750, 0.0109863281250, -0.0196533203125, 0.0332031250000, -0.0594482421875, 0.1373291015625, 0.9721679687500, -0.1022949218750, 0.0476074218750, -0.0266113281250, 0.0148925781250, -0.0083007812500},
	{-0.0291748046875, 0.0292968750000, -0.0517578125000, 0.0891113281250, -0.1665039062500, 0.4650878906250, 0.7797851562500, -0.2003173828125, 0.1015625000000, -0.0582275390625, 0.0330810546875, -0.0189208984375},
	{-0.0189208984375, 0.0330810546875, -0.058227539062, 0.1015625000000, -0.200317382812, 0.7797851562500, 0.4650878906250, -0.166503906250, 0.0891113281250, -0.051757812500, 0.0292968750000, -0.0291748046875},
	{-0.0083007812500, 0.0148925781250, -0.0266113281250, 0.0476074218750, -0.1022949218750, 0.9721679687500, 0.1373291015625, -0.0594482421875, 0.0332031250000, -0.0196533203125, 0.0109863281250, 0.0017089843750},
}

func NewMeter(sampleRate int) *Meter {
	m := &Meter{
		blockLen: max(1, sampleRate/10),
		powers: [2]RingBuffer[float32]{
			{Buffer: make([]float32, 4)},
			{Buffer: make([]float32, 30)},
		},
	}
	for chn := range m.weighting {
		for k, c := range kWeighting {
			m.weighting[chn][k] = biquad.NewSection(c)
		}
	}
	return m
}

// Write feeds a block of audio. A nil right channel duplicates the left one.
func (m *Meter) Write(left, right []float32) {
	if right == nil {
		right = left
	}
	for len(left) > 0 {
		n := min(len(left), m.blockLen-len(m.pending[0]))
		m.pending[0] = append(m.pending[0], left[:n]...)
		m.pending[1] = append(m.pending[1], right[:n]...)
		left, right = left[n:], right[n:]
		if len(m.pending[0]) == m.blockLen {
			m.block(m.pending)
			m.pending[0], m.pending[1] = m.pending[0][:0], m.pending[1][:0]
		}
	}
}

// WriteFrames feeds interleaved stereo frames.
func (m *Meter) WriteFrames(frames [][2]float32) {
	l := make([]float32, len(frames))
	r := make([]float32, len(frames))
	for i, f := range frames {
		l[i], r[i] = f[0], f[1]
	}
	m.Write(l, r)
}

func (m *Meter) block(chunk [2][]float32) {
	n := len(chunk[0])
	m.tmp = setLength(m.tmp, 4*n)
	m.tmp2 = setLength(m.tmp2, 4*n)
	var total float32
	for chn := range 2 {
		x := m.tmp[:n]
		copy(x, chunk[chn])
		filterSections(m.weighting[chn][:], x)
		total += vek32.Mean(vek32.Mul_Into(m.tmp2[:n], x, x))

		o := m.oversample[chn].process(chunk[chn], m.tmp2)
		vek32.Abs_Inplace(o)
		m.peak[chn] = max(m.peak[chn], vek32.Max(o))
	}
	for i := range m.powers {
		m.powers[i].WriteWrap([]float32{total})
		mean := vek32.Mean(m.powers[i].Buffer)
		m.max[i] = max(m.max[i], mean)
		if i == 0 && len(m.blocks) < maxMeterBlocks {
			m.blocks = append(m.blocks, mean)
		}
	}
}

// Loudness returns the measurements so far. Audio short of a whole 100 ms
// block is not yet included.
func (m *Meter) Loudness() Loudness {
	return Loudness{
		Momentary:    powerToLoudness(vek32.Mean(m.powers[0].Buffer)),
		ShortTerm:    powerToLoudness(vek32.Mean(m.powers[1].Buffer)),
		MaxMomentary: powerToLoudness(m.max[0]),
		MaxShortTerm: powerToLoudness(m.max[1]),
		Integrated:   powerToLoudness(m.integrated()),
		TruePeak:     [2]Decibel{amplitudeToDecibel(m.peak[0]), amplitudeToDecibel(m.peak[1])},
	}
}

// integrated gates the momentary blocks first at -70 LUFS and then at 10 dB
// below the mean of the blocks that passed.
func (m *Meter) integrated() float32 {
	if len(m.blocks) == 0 {
		return 0
	}
	m.gate = setLength(m.gate, len(m.blocks))
	m.tmp = setLength(m.tmp, len(m.blocks))
	m.tmp2 = setLength(m.tmp2, len(m.blocks))
	passed := vek32.Select_Into(m.tmp, m.blocks, vek32.GtNumber_Into(m.gate, m.blocks, loudnessToPower(-70)))
	if len(passed) == 0 {
		return 0
	}
	relative := vek32.Mean(passed) / 10
	passed = vek32.Select_Into(m.tmp2, passed, vek32.GtNumber_Into(m.gate[:len(passed)], passed, relative))
	if len(passed) == 0 {
		return 0
	}
	return vek32.Mean(passed)
}

func (m *Meter) Reset() {
	*m = *NewMeter(m.blockLen * 10)
}

func powerToLoudness(power float32) Decibel {
	return Decibel(float32(10*math.Log10(float64(power))) + kOffset)
}

func loudnessToPower(l Decibel) float32 {
	return float32(math.Pow(10, (float64(l)-float64(kOffset))/10))
}

func amplitudeToDecibel(a float32) Decibel {
	return Decibel(20 * math.Log10(float64(a)))
}

// process upsamples x four times into y, which must have room for 4*len(x)
// values. Phase q of the output is the convolution of x with the q-th
// polyphase branch.
func (s *oversampler) process(x, y []float32) []float32 {
	s.tmp = setLength(s.tmp, len(x))
	s.tmp2 = setLength(s.tmp2, len(x))
	for q, coeffs := range oversamplingCoeffs {
		r := vek32.Zeros_Into(s.tmp2, len(x))
		for j, c := range coeffs {
			if j > len(x) {
				break
			}
			// the convolution reaches before x[0], into the history
			vek32.MulNumber_Into(s.tmp[:j], s.history[11-j:11], c)
			vek32.MulNumber_Into(s.tmp[j:], x[:len(x)-j], c)
			vek32.Add_Inplace(r, s.tmp[:len(x)])
		}
		for p, v := range r {
			y[p*4+q] = v
		}
	}
	z := min(len(x), 11)
	copy(s.history[:11-z], s.history[z:11])
	copy(s.history[11-z:], x[len(x)-z:])
	return y[:len(x)*4]
}

func setLength[T any](s []T, n int) []T {
	if cap(s) < n {
		s = append(s[:cap(s)], make([]T, n-cap(s))...)
	}
	return s[:n]
}
