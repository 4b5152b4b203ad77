// Package quad provides adaptive numerical integration of one-dimensional
// functions: a globally adaptive Gauss-Kronrod integrator (QAG) and an
// adaptive integrator for integrands carrying a cosine or sine weight (QAWO).
//
// Both integrators bisect the subinterval with the largest error estimate
// until the requested absolute or relative accuracy is met, and report why
// they stopped through a Status code when it is not. Subintervals live in a
// caller-supplied Workspace that bounds how many can be created.
package quad
