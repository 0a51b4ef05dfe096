package stage

// Health summarizes whether a lane can make progress.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}

// Degraded is ready but reports an optional capability that is off, such as
// resolver model hints without a route.
func Degraded(name, detail string) Health {
	return Health{Name: name, Ready: true, Detail: detail}
}

// FromError is Healthy for a nil err and Unhealthy with its message otherwise.
func FromError(name string, err error) Health {
	if err != nil {
		return Unhealthy(name, err.Error())
	}
	return Healthy(name)
}
