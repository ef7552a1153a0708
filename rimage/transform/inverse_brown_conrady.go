package transform

// InverseBrownConrady applies the inverse of the Brown-Conrady distortion model.
// Given distorted points, it computes the corresponding undistorted points using
// an iterative Newton-Raphson method.
type InverseBrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// NewInverseBrownConrady takes in a slice of floats that will be passed into the struct in order.
func NewInverseBrownConrady(inp []float64) (*InverseBrownConrady, error) {
	params, err := padParameters(inp)
	if err != nil {
		return nil, err
	}
	return &InverseBrownConrady{params[0], params[1], params[2], params[3], params[4]}, nil
}

// Inverse returns the model that undoes bc.
func (bc *BrownConrady) Inverse() *InverseBrownConrady {
	if bc == nil {
		return nil
	}
	return &InverseBrownConrady{bc.RadialK1, bc.RadialK2, bc.RadialK3, bc.TangentialP1, bc.TangentialP2}
}

// CheckValid checks if the fields for InverseBrownConrady have valid inputs.
func (ibc *InverseBrownConrady) CheckValid() error {
	if ibc == nil {
		return InvalidDistortionError("InverseBrownConrady shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (ibc *InverseBrownConrady) ModelType() DistortionType {
	return InverseBrownConradyDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (ibc *InverseBrownConrady) Parameters() []float64 {
	if ibc == nil {
		return []float64{}
	}
	return []float64{ibc.RadialK1, ibc.RadialK2, ibc.RadialK3, ibc.TangentialP1, ibc.TangentialP2}
}

// Transform finds the undistorted point that the forward model would send to (xd, yd), starting
// from (xd, yd) itself and taking Newton-Raphson steps until the residual is below 1e-10.
func (ibc *InverseBrownConrady) Transform(xd, yd float64) (float64, float64) {
	if ibc == nil {
		return xd, yd
	}
	k1, k2, k3, p1, p2 := ibc.RadialK1, ibc.RadialK2, ibc.RadialK3, ibc.TangentialP1, ibc.TangentialP2

	const maxIterations = 20
	const tolerance = 1e-10

	xu, yu := xd, yd
	for i := 0; i < maxIterations; i++ {
		xEst, yEst := brownConradyForward(k1, k2, k3, p1, p2, xu, yu)
		errX, errY := xEst-xd, yEst-yd
		if errX*errX+errY*errY < tolerance*tolerance {
			break
		}

		r2 := xu*xu + yu*yu
		radial := 1 + k1*r2 + k2*r2*r2 + k3*r2*r2*r2
		dRadial := 2 * (k1 + 2*k2*r2 + 3*k3*r2*r2)

		// jacobian of the forward model
		j00 := radial + xu*xu*dRadial + 2*p1*yu + 6*p2*xu
		j01 := xu*yu*dRadial + 2*p1*xu + 2*p2*yu
		j10 := xu*yu*dRadial + 2*p2*yu + 2*p1*xu
		j11 := radial + yu*yu*dRadial + 2*p2*xu + 6*p1*yu

		det := j00*j11 - j01*j10
		if det == 0 {
			break
		}
		xu -= (j11*errX - j01*errY) / det
		yu -= (-j10*errX + j00*errY) / det
	}
	return xu, yu
}
