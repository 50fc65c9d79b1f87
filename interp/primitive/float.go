package primitive

import (
	"math"
	"math/rand"
	"strconv"

	"github.com/fuzzball-muck/muckcore/interp"
	"github.com/fuzzball-muck/muckcore/value"
)

// registerFloat wires spec.md §4.D.4's Float group. Errors never trap:
// a domain error (e.g. sqrt of a negative) sets the frame's error mask
// and yields a sentinel result rather than unwinding to TRY.
func registerFloat(reg *interp.Registry) {
	unary := func(name string, fn func(float64) float64) {
		reg.Register(name, 0, func(f *interp.Frame, _ *interp.Registry) error {
			v, err := popFloatLike(f)
			if err != nil {
				return err
			}
			r := fn(v)
			if math.IsNaN(r) {
				f.ErrMask |= interp.ErrNaN
			}
			if math.IsInf(r, 0) {
				f.ErrMask |= interp.ErrFloatOverflow
			}
			return f.Push(value.Float(r))
		})
	}
	unary("CEIL", math.Ceil)
	unary("FLOOR", math.Floor)
	unary("SQRT", math.Sqrt)
	unary("SIN", math.Sin)
	unary("COS", math.Cos)
	unary("TAN", math.Tan)
	unary("ASIN", math.Asin)
	unary("ACOS", math.Acos)
	unary("ATAN", math.Atan)
	unary("EXP", math.Exp)
	unary("LOG", math.Log)
	unary("LOG10", math.Log10)
	unary("FABS", math.Abs)
	unary("ROUND", math.Round)

	reg.Register("FLOAT", 0, func(f *interp.Frame, _ *interp.Registry) error {
		v, err := popFloatLike(f)
		if err != nil {
			return err
		}
		return f.Push(value.Float(v))
	})
	reg.Register("POW", 0, func(f *interp.Frame, _ *interp.Registry) error {
		b, err := popFloatLike(f)
		if err != nil {
			return err
		}
		a, err := popFloatLike(f)
		if err != nil {
			return err
		}
		return f.Push(value.Float(math.Pow(a, b)))
	})
	reg.Register("ATAN2", 0, func(f *interp.Frame, _ *interp.Registry) error {
		x, err := popFloatLike(f)
		if err != nil {
			return err
		}
		y, err := popFloatLike(f)
		if err != nil {
			return err
		}
		return f.Push(value.Float(math.Atan2(y, x)))
	})
	reg.Register("FMOD", 0, func(f *interp.Frame, _ *interp.Registry) error {
		b, err := popFloatLike(f)
		if err != nil {
			return err
		}
		a, err := popFloatLike(f)
		if err != nil {
			return err
		}
		return f.Push(value.Float(math.Mod(a, b)))
	})
	reg.Register("MODF", 0, func(f *interp.Frame, _ *interp.Registry) error {
		v, err := popFloatLike(f)
		if err != nil {
			return err
		}
		ip, fp := math.Modf(v)
		if err := f.Push(value.Float(ip)); err != nil {
			return err
		}
		return f.Push(value.Float(fp))
	})
	reg.Register("PI", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Float(math.Pi))
	})
	reg.Register("INF", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Float(math.Inf(1)))
	})
	reg.Register("EPSILON", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Float(2.220446049250313e-16))
	})
	reg.Register("FRAND", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Float(rand.Float64()))
	})
	reg.Register("GAUSSIAN", 0, func(f *interp.Frame, _ *interp.Registry) error {
		return f.Push(value.Float(rand.NormFloat64()))
	})
	reg.Register("DIST3D", 0, func(f *interp.Frame, _ *interp.Registry) error {
		z2, err := popFloatLike(f)
		if err != nil {
			return err
		}
		y2, err := popFloatLike(f)
		if err != nil {
			return err
		}
		x2, err := popFloatLike(f)
		if err != nil {
			return err
		}
		z1, err := popFloatLike(f)
		if err != nil {
			return err
		}
		y1, err := popFloatLike(f)
		if err != nil {
			return err
		}
		x1, err := popFloatLike(f)
		if err != nil {
			return err
		}
		d := math.Sqrt((x2-x1)*(x2-x1) + (y2-y1)*(y2-y1) + (z2-z1)*(z2-z1))
		return f.Push(value.Float(d))
	})
	reg.Register("DIFF3", 0, func(f *interp.Frame, _ *interp.Registry) error {
		z2, err := popFloatLike(f)
		if err != nil {
			return err
		}
		y2, err := popFloatLike(f)
		if err != nil {
			return err
		}
		x2, err := popFloatLike(f)
		if err != nil {
			return err
		}
		z1, err := popFloatLike(f)
		if err != nil {
			return err
		}
		y1, err := popFloatLike(f)
		if err != nil {
			return err
		}
		x1, err := popFloatLike(f)
		if err != nil {
			return err
		}
		if err := f.Push(value.Float(x2 - x1)); err != nil {
			return err
		}
		if err := f.Push(value.Float(y2 - y1)); err != nil {
			return err
		}
		return f.Push(value.Float(z2 - z1))
	})
	reg.Register("XYZ_TO_POLAR", 0, func(f *interp.Frame, _ *interp.Registry) error {
		z, err := popFloatLike(f)
		if err != nil {
			return err
		}
		y, err := popFloatLike(f)
		if err != nil {
			return err
		}
		x, err := popFloatLike(f)
		if err != nil {
			return err
		}
		r := math.Sqrt(x*x + y*y + z*z)
		theta := math.Atan2(y, x)
		phi := 0.0
		if r != 0 {
			phi = math.Acos(z / r)
		}
		if err := f.Push(value.Float(r)); err != nil {
			return err
		}
		if err := f.Push(value.Float(theta)); err != nil {
			return err
		}
		return f.Push(value.Float(phi))
	})
	reg.Register("POLAR_TO_XYZ", 0, func(f *interp.Frame, _ *interp.Registry) error {
		phi, err := popFloatLike(f)
		if err != nil {
			return err
		}
		theta, err := popFloatLike(f)
		if err != nil {
			return err
		}
		r, err := popFloatLike(f)
		if err != nil {
			return err
		}
		x := r * math.Sin(phi) * math.Cos(theta)
		y := r * math.Sin(phi) * math.Sin(theta)
		z := r * math.Cos(phi)
		if err := f.Push(value.Float(x)); err != nil {
			return err
		}
		if err := f.Push(value.Float(y)); err != nil {
			return err
		}
		return f.Push(value.Float(z))
	})
	reg.Register("STRTOF", 0, func(f *interp.Frame, _ *interp.Registry) error {
		s, err := popStr(f)
		if err != nil {
			return err
		}
		v, convErr := strconv.ParseFloat(s, 64)
		if convErr != nil {
			return f.Push(value.Float(0))
		}
		return f.Push(value.Float(v))
	})
	reg.Register("FTOSTR", 0, func(f *interp.Frame, _ *interp.Registry) error {
		v, err := popFloatLike(f)
		if err != nil {
			return err
		}
		return f.Push(value.Str(strconv.FormatFloat(v, 'g', -1, 64)))
	})
}
