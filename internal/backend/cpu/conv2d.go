package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/born-ml/convlstm/internal/parallel"
	"github.com/born-ml/convlstm/internal/tensor"
)

// convGeometry holds the validated dimensions of one convolution.
type convGeometry struct {
	n, cIn, h, w     int // input [N, C_in, H, W]
	cOut, kh, kw     int // kernel [C_out, C_in, K_h, K_w]
	hOut, wOut       int
	params           tensor.Conv2DParams
	colRows, colCols int // im2col matrix is [C_in*K_h*K_w, H_out*W_out]
}

func newConvGeometry(op string, input, kernel *tensor.RawTensor, params tensor.Conv2DParams) convGeometry {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()

	if len(inputShape) != 4 {
		panic(fmt.Sprintf("%s: input must be 4D [N,C,H,W], got %dD", op, len(inputShape)))
	}
	if len(kernelShape) != 4 {
		panic(fmt.Sprintf("%s: kernel must be 4D [C_out,C_in,K_h,K_w], got %dD", op, len(kernelShape)))
	}
	if input.DType() != kernel.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: input %s, kernel %s", op, input.DType(), kernel.DType()))
	}
	if err := params.Validate(); err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}
	if inputShape[1] != kernelShape[1] {
		panic(fmt.Sprintf("%s: input channels %d != kernel channels %d", op, inputShape[1], kernelShape[1]))
	}

	g := convGeometry{
		n: inputShape[0], cIn: inputShape[1], h: inputShape[2], w: inputShape[3],
		cOut: kernelShape[0], kh: kernelShape[2], kw: kernelShape[3],
		params: params,
	}
	g.hOut, g.wOut = params.OutputSize(g.h, g.w, g.kh, g.kw)
	if g.hOut <= 0 || g.wOut <= 0 {
		panic(fmt.Sprintf("%s: invalid output dimensions: out_h=%d, out_w=%d (check stride/padding)", op, g.hOut, g.wOut))
	}
	g.colRows = g.cIn * g.kh * g.kw
	g.colCols = g.hOut * g.wOut
	return g
}

func (g convGeometry) outputShape() tensor.Shape {
	return tensor.Shape{g.n, g.cOut, g.hOut, g.wOut}
}

// Conv2D performs 2D cross-correlation using the im2col algorithm.
//
// Input shape: [N, C_in, H, W]
// Kernel shape: [C_out, C_in, K_h, K_w]
// Output shape: [N, C_out, H_out, W_out] with
// H_out = (H + 2*padding[0] - K_h)/stride[0] + 1 and likewise for W.
//
// For every sample the input patches are unfolded into a
// [C_in*K_h*K_w, H_out*W_out] matrix and multiplied by the kernel viewed as
// [C_out, C_in*K_h*K_w] with a BLAS GEMM. Samples run in parallel.
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, params tensor.Conv2DParams) *tensor.RawTensor {
	g := newConvGeometry("conv2d", input, kernel, params)
	output := cpu.newResult("conv2d", g.outputShape(), input.DType())

	switch input.DType() {
	case tensor.Float32:
		conv2dForward(cpu, g, output.AsFloat32(), input.AsFloat32(), kernel.AsFloat32())
	case tensor.Float64:
		conv2dForward(cpu, g, output.AsFloat64(), input.AsFloat64(), kernel.AsFloat64())
	default:
		panic(fmt.Sprintf("conv2d: unsupported dtype %s", input.DType()))
	}

	return output
}

func conv2dForward[T float](cpu *CPUBackend, g convGeometry, out, in, kernel []T) {
	inSize := g.cIn * g.h * g.w
	outSize := g.cOut * g.colCols

	cpu.forEachSample(g.n, func(n int) {
		col := make([]T, g.colRows*g.colCols)
		im2col(col, in[n*inSize:(n+1)*inSize], g)
		// out_n[C_out, P] = W[C_out, K] x col[K, P]
		gemm(blas.NoTrans, blas.NoTrans, g.cOut, g.colCols, g.colRows,
			kernel, col, 0, out[n*outSize:(n+1)*outSize])
	})
}

// im2col unfolds one sample [C, H, W] into col [C*K_h*K_w, H_out*W_out].
// Positions that fall into the zero padding are written as 0.
func im2col[T float](col, x []T, g convGeometry) {
	sh, sw := g.params.Stride[0], g.params.Stride[1]
	ph, pw := g.params.Padding[0], g.params.Padding[1]

	row := 0
	for c := 0; c < g.cIn; c++ {
		for ki := 0; ki < g.kh; ki++ {
			for kj := 0; kj < g.kw; kj++ {
				base := row * g.colCols
				for oh := 0; oh < g.hOut; oh++ {
					ih := oh*sh - ph + ki
					for ow := 0; ow < g.wOut; ow++ {
						iw := ow*sw - pw + kj
						idx := base + oh*g.wOut + ow
						if ih < 0 || ih >= g.h || iw < 0 || iw >= g.w {
							col[idx] = 0
							continue
						}
						col[idx] = x[(c*g.h+ih)*g.w+iw]
					}
				}
				row++
			}
		}
	}
}

// col2im is the adjoint of im2col: it accumulates col back into dx [C, H, W].
func col2im[T float](dx, col []T, g convGeometry) {
	sh, sw := g.params.Stride[0], g.params.Stride[1]
	ph, pw := g.params.Padding[0], g.params.Padding[1]

	row := 0
	for c := 0; c < g.cIn; c++ {
		for ki := 0; ki < g.kh; ki++ {
			for kj := 0; kj < g.kw; kj++ {
				base := row * g.colCols
				for oh := 0; oh < g.hOut; oh++ {
					ih := oh*sh - ph + ki
					if ih < 0 || ih >= g.h {
						continue
					}
					for ow := 0; ow < g.wOut; ow++ {
						iw := ow*sw - pw + kj
						if iw < 0 || iw >= g.w {
							continue
						}
						dx[(c*g.h+ih)*g.w+iw] += col[base+oh*g.wOut+ow]
					}
				}
				row++
			}
		}
	}
}

// gemm computes c = op(a) x op(b) + beta*c for row-major matrices where
// op(a) is [m, k] and op(b) is [k, n].
func gemm[T float](tA, tB blas.Transpose, m, n, k int, a, b []T, beta T, c []T) {
	aRows, aCols := m, k
	if tA == blas.Trans {
		aRows, aCols = k, m
	}
	bRows, bCols := k, n
	if tB == blas.Trans {
		bRows, bCols = n, k
	}

	switch a := any(a).(type) {
	case []float32:
		blas32.Gemm(tA, tB, 1,
			blas32.General{Rows: aRows, Cols: aCols, Stride: aCols, Data: a[:aRows*aCols]},
			blas32.General{Rows: bRows, Cols: bCols, Stride: bCols, Data: any(b).([]float32)[:bRows*bCols]},
			float32(beta),
			blas32.General{Rows: m, Cols: n, Stride: n, Data: any(c).([]float32)[:m*n]})
	case []float64:
		blas64.Gemm(tA, tB, 1,
			blas64.General{Rows: aRows, Cols: aCols, Stride: aCols, Data: a[:aRows*aCols]},
			blas64.General{Rows: bRows, Cols: bCols, Stride: bCols, Data: any(b).([]float64)[:bRows*bCols]},
			float64(beta),
			blas64.General{Rows: m, Cols: n, Stride: n, Data: any(c).([]float64)[:m*n]})
	default:
		panic(fmt.Sprintf("gemm: unsupported element type %T", a))
	}
}

// forEachSample runs f for every batch index using the backend's parallel config.
func (cpu *CPUBackend) forEachSample(n int, f func(i int)) {
	parallel.For(n, f, cpu.par.WithMinChunkSize(1))
}
