//go:build pipe_fiber

package pipe

const defaultBackend = Suspendable
