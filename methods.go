package geoconv

import (
	"fmt"
	"math"

	"github.com/ctessum/geom/proj"
)

// methodFunc builds forward (radians to metres) and inverse transforms for a
// projection method that github.com/ctessum/geom/proj does not implement.
type methodFunc func(sr *proj.SR) (forward, inverse proj.Transformer, err error)

var extraMethods = map[string]methodFunc{
	"sterea": obliqueStereographic,
	"stere":  polarStereographic,
	"somerc": swissObliqueMercator,
	"laea":   lambertAzimuthalEqualArea,
	"eqc":    equidistantCylindrical,
}

const (
	fortPi  = math.Pi / 4
	halfPi  = math.Pi / 2
	epsilon = 1e-10
)

func orZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func adjustLon(x float64) float64 {
	if math.Abs(x) <= math.Pi {
		return x
	}
	return x - math.Copysign(2*math.Pi, x)
}

func srat(esinp, exp float64) float64 {
	return math.Pow((1-esinp)/(1+esinp), exp)
}

// obliqueStereographic is the double stereographic projection used by the
// Dutch RD grid: a Gauss conformal sphere followed by a stereographic
// projection of that sphere.
func obliqueStereographic(sr *proj.SR) (forward, inverse proj.Transformer, err error) {
	lat0, lon0 := orZero(sr.Lat0), orZero(sr.Long0)
	x0, y0, k0 := orZero(sr.X0), orZero(sr.Y0), sr.K0
	a, e, es := sr.A, sr.E, sr.Es

	sphi := math.Sin(lat0)
	cphi := math.Cos(lat0)
	cphi *= cphi
	rc := math.Sqrt(1-es) / (1 - es*sphi*sphi)
	c := math.Sqrt(1 + es*cphi*cphi/(1-es))
	phic0 := math.Asin(sphi / c)
	ratexp := 0.5 * c * e
	k := math.Tan(0.5*phic0+fortPi) / (math.Pow(math.Tan(0.5*lat0+fortPi), c) * srat(e*sphi, ratexp))
	sinc0, cosc0 := math.Sin(phic0), math.Cos(phic0)
	r2 := 2 * rc

	forward = func(lon, lat float64) (float64, float64, error) {
		lon = adjustLon(lon - lon0)
		gy := 2*math.Atan(k*math.Pow(math.Tan(0.5*lat+fortPi), c)*srat(e*math.Sin(lat), ratexp)) - halfPi
		gx := c * lon
		sinc, cosc, cosl := math.Sin(gy), math.Cos(gy), math.Cos(gx)
		kk := k0 * r2 / (1 + sinc0*sinc + cosc0*cosc*cosl)
		x := kk * cosc * math.Sin(gx)
		y := kk * (cosc0*sinc - sinc0*cosc*cosl)
		return a*x + x0, a*y + y0, nil
	}
	inverse = func(x, y float64) (float64, float64, error) {
		x = (x - x0) / a / k0
		y = (y - y0) / a / k0
		var lon, lat float64
		if rho := math.Hypot(x, y); rho != 0 {
			cc := 2 * math.Atan2(rho, r2)
			sinc, cosc := math.Sin(cc), math.Cos(cc)
			lat = math.Asin(cosc*sinc0 + y*sinc*cosc0/rho)
			lon = math.Atan2(x*sinc, rho*cosc0*cosc-y*sinc0*sinc)
		} else {
			lat = phic0
		}

		lon /= c
		num := math.Pow(math.Tan(0.5*lat+fortPi)/k, 1/c)
		for i := 0; ; i++ {
			if i == 20 {
				return 0, 0, fmt.Errorf("sterea: inverse did not converge")
			}
			next := 2*math.Atan(num*srat(e*math.Sin(lat), -0.5*e)) - halfPi
			if math.Abs(next-lat) < 1e-14 {
				lat = next
				break
			}
			lat = next
		}
		return adjustLon(lon + lon0), lat, nil
	}
	return forward, inverse, nil
}

func tsfn(e, phi, sinphi float64) float64 {
	con := e * sinphi
	return math.Tan(0.5*(halfPi-phi)) / math.Pow((1-con)/(1+con), 0.5*e)
}

// polarStereographic covers the polar aspect only: the Antarctic and NSIDC
// grids (scale set by lat_ts) and UPS (scale set by k).
func polarStereographic(sr *proj.SR) (forward, inverse proj.Transformer, err error) {
	lat0, lon0 := orZero(sr.Lat0), orZero(sr.Long0)
	x0, y0 := orZero(sr.X0), orZero(sr.Y0)
	a, e, k0 := sr.A, sr.E, sr.K0
	if math.Abs(math.Abs(lat0)-halfPi) > epsilon {
		return nil, nil, fmt.Errorf("stere: only the polar aspect is supported")
	}
	if k0 == 0 || math.IsNaN(k0) {
		k0 = 1
	}
	con := 1.0
	if lat0 < 0 {
		con = -1
	}

	// akm1 is the radius per unit of tsfn.
	akm1 := 2 * a * k0 / math.Sqrt(math.Pow(1+e, 1+e)*math.Pow(1-e, 1-e))
	if ts := sr.LatTS; !math.IsNaN(ts) && math.Abs(math.Cos(ts)) > epsilon {
		sints := math.Sin(ts)
		akm1 = a * k0 * math.Cos(ts) / math.Sqrt(1-e*e*sints*sints) / tsfn(e, con*ts, con*sints)
	}

	forward = func(lon, lat float64) (float64, float64, error) {
		lam := adjustLon(lon - lon0)
		if con*lat <= -halfPi+epsilon {
			return 0, 0, fmt.Errorf("stere: point is at the opposite pole")
		}
		rho := akm1 * tsfn(e, con*lat, con*math.Sin(lat))
		return x0 + rho*math.Sin(lam), y0 - con*rho*math.Cos(lam), nil
	}
	inverse = func(x, y float64) (float64, float64, error) {
		x -= x0
		y -= y0
		rho := math.Hypot(x, y)
		if rho < epsilon {
			return lon0, con * halfPi, nil
		}
		ts := rho / akm1
		phi := halfPi - 2*math.Atan(ts)
		for i := 0; ; i++ {
			if i == 20 {
				return 0, 0, fmt.Errorf("stere: inverse did not converge")
			}
			esinp := e * math.Sin(phi)
			next := halfPi - 2*math.Atan(ts*math.Pow((1-esinp)/(1+esinp), 0.5*e))
			if math.Abs(next-phi) < 1e-12 {
				phi = next
				break
			}
			phi = next
		}
		return adjustLon(lon0 + math.Atan2(x, -con*y)), con * phi, nil
	}
	return forward, inverse, nil
}

// swissObliqueMercator is the oblique conformal cylindrical projection used
// by the Swiss LV03 and LV95 grids.
func swissObliqueMercator(sr *proj.SR) (forward, inverse proj.Transformer, err error) {
	phy0, lambda0 := orZero(sr.Lat0), orZero(sr.Long0)
	x0, y0 := orZero(sr.X0), orZero(sr.Y0)
	e, es := sr.E, sr.Es

	sinPhy0 := math.Sin(phy0)
	r := sr.K0 * sr.A * math.Sqrt(1-es) / (1 - es*sinPhy0*sinPhy0)
	alpha := math.Sqrt(1 + es/(1-es)*math.Pow(math.Cos(phy0), 4))
	b0 := math.Asin(sinPhy0 / alpha)
	k1 := math.Log(math.Tan(fortPi + b0/2))
	k2 := math.Log(math.Tan(fortPi + phy0/2))
	k3 := math.Log((1 + e*sinPhy0) / (1 - e*sinPhy0))
	kk := k1 - alpha*k2 + alpha*e/2*k3

	forward = func(lon, lat float64) (float64, float64, error) {
		sa1 := math.Log(math.Tan(fortPi - lat/2))
		sa2 := e / 2 * math.Log((1+e*math.Sin(lat))/(1-e*math.Sin(lat)))
		s := -alpha*(sa1+sa2) + kk
		b := 2 * (math.Atan(math.Exp(s)) - fortPi)
		i := alpha * (lon - lambda0)
		rotI := math.Atan(math.Sin(i) / (math.Sin(b0)*math.Tan(b) + math.Cos(b0)*math.Cos(i)))
		rotB := math.Asin(math.Cos(b0)*math.Sin(b) - math.Sin(b0)*math.Cos(b)*math.Cos(i))
		y := r/2*math.Log((1+math.Sin(rotB))/(1-math.Sin(rotB))) + y0
		x := r*rotI + x0
		return x, y, nil
	}
	inverse = func(x, y float64) (float64, float64, error) {
		rotI := (x - x0) / r
		rotB := 2 * (math.Atan(math.Exp((y-y0)/r)) - fortPi)
		b := math.Asin(math.Cos(b0)*math.Sin(rotB) + math.Sin(b0)*math.Cos(rotB)*math.Cos(rotI))
		i := math.Atan(math.Sin(rotI) / (math.Cos(b0)*math.Cos(rotI) - math.Sin(b0)*math.Tan(rotB)))
		lambda := lambda0 + i/alpha

		phy, prev := b, -1000.0
		for n := 0; math.Abs(phy-prev) > 1e-7; n++ {
			if n == 20 {
				return 0, 0, fmt.Errorf("somerc: inverse did not converge")
			}
			s := 1/alpha*(math.Log(math.Tan(fortPi+b/2))-kk) + e*math.Log(math.Tan(fortPi+math.Asin(e*math.Sin(phy))/2))
			prev = phy
			phy = 2*math.Atan(math.Exp(s)) - halfPi
		}
		return lambda, phy, nil
	}
	return forward, inverse, nil
}

func qsfn(e, sinphi float64) float64 {
	if e < 1e-7 {
		return 2 * sinphi
	}
	con := e * sinphi
	return (1 - e*e) * (sinphi/(1-con*con) - (0.5/e)*math.Log((1-con)/(1+con)))
}

// lambertAzimuthalEqualArea implements the ellipsoidal oblique aspect, as
// used by the European ETRS89-LAEA grid.
func lambertAzimuthalEqualArea(sr *proj.SR) (forward, inverse proj.Transformer, err error) {
	lat0, lon0 := orZero(sr.Lat0), orZero(sr.Long0)
	x0, y0 := orZero(sr.X0), orZero(sr.Y0)
	a, e, es := sr.A, sr.E, sr.Es
	if math.Abs(math.Abs(lat0)-halfPi) < epsilon || math.Abs(lat0) < epsilon {
		return nil, nil, fmt.Errorf("laea: only the oblique aspect is supported")
	}

	qp := qsfn(e, 1)
	apa := authset(es)
	rq := math.Sqrt(0.5 * qp)
	sinph0 := math.Sin(lat0)
	sinb1 := qsfn(e, sinph0) / qp
	cosb1 := math.Sqrt(1 - sinb1*sinb1)
	dd := math.Cos(lat0) / (math.Sqrt(1-es*sinph0*sinph0) * rq * cosb1)
	xmf := rq * dd
	ymf := rq / dd

	forward = func(lon, lat float64) (float64, float64, error) {
		lam := adjustLon(lon - lon0)
		sinb := qsfn(e, math.Sin(lat)) / qp
		cosb := math.Sqrt(1 - sinb*sinb)
		b := 1 + sinb1*sinb + cosb1*cosb*math.Cos(lam)
		if math.Abs(b) < epsilon {
			return 0, 0, fmt.Errorf("laea: point is antipodal to the origin")
		}
		b = math.Sqrt(2 / b)
		y := ymf * b * (cosb1*sinb - sinb1*cosb*math.Cos(lam))
		x := xmf * b * cosb * math.Sin(lam)
		return a*x + x0, a*y + y0, nil
	}
	inverse = func(x, y float64) (float64, float64, error) {
		x = (x - x0) / a / dd
		y = (y - y0) / a * dd
		rho := math.Hypot(x, y)
		if rho < epsilon {
			return lon0, lat0, nil
		}
		sCe := 2 * math.Asin(0.5*rho/rq)
		cCe, sCe := math.Cos(sCe), math.Sin(sCe)
		ab := cCe*sinb1 + y*sCe*cosb1/rho
		yy := rho*cosb1*cCe - y*sinb1*sCe
		xx := x * sCe
		lam := math.Atan2(xx, yy)
		return adjustLon(lon0 + lam), authlat(math.Asin(ab), apa), nil
	}
	return forward, inverse, nil
}

func authset(es float64) [3]float64 {
	const (
		p00 = 0.33333333333333333333
		p01 = 0.17222222222222222222
		p02 = 0.10257936507936507936
		p10 = 0.06388888888888888888
		p11 = 0.06640211640211640211
		p20 = 0.01641501294219154443
	)
	var apa [3]float64
	apa[0] = es * p00
	t := es * es
	apa[0] += t * p01
	apa[1] = t * p10
	t *= es
	apa[0] += t * p02
	apa[1] += t * p11
	apa[2] = t * p20
	return apa
}

func authlat(beta float64, apa [3]float64) float64 {
	t := beta + beta
	return beta + apa[0]*math.Sin(t) + apa[1]*math.Sin(t+t) + apa[2]*math.Sin(t+t+t)
}

// equidistantCylindrical is plate carrée scaled at the true-scale latitude.
func equidistantCylindrical(sr *proj.SR) (forward, inverse proj.Transformer, err error) {
	lat0, lon0 := orZero(sr.Lat0), orZero(sr.Long0)
	x0, y0 := orZero(sr.X0), orZero(sr.Y0)
	rc := math.Cos(orZero(sr.LatTS))
	a := sr.A
	if rc <= 0 {
		return nil, nil, fmt.Errorf("eqc: lat_ts must be inside (-90, 90)")
	}

	forward = func(lon, lat float64) (float64, float64, error) {
		return x0 + a*adjustLon(lon-lon0)*rc, y0 + a*(lat-lat0), nil
	}
	inverse = func(x, y float64) (float64, float64, error) {
		return adjustLon(lon0 + (x-x0)/a/rc), lat0 + (y-y0)/a, nil
	}
	return forward, inverse, nil
}
