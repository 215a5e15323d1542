package googleroutes

// computeRoutes request and response shapes. Only the fields named in
// fieldMask are populated by the API.

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type location struct {
	LatLng *latLng `json:"latLng,omitempty"`
}

type waypoint struct {
	Location location `json:"location"`
}

type computeRoutesRequest struct {
	Origin                   waypoint `json:"origin"`
	Destination              waypoint `json:"destination"`
	TravelMode               string   `json:"travelMode"`
	ComputeAlternativeRoutes bool     `json:"computeAlternativeRoutes"`
}

type computeRoutesResponse struct {
	Routes []route `json:"routes"`
}

type route struct {
	Legs           []leg  `json:"legs"`
	Duration       string `json:"duration"`
	DistanceMeters *int   `json:"distanceMeters"`
}

type leg struct {
	Steps          []step `json:"steps"`
	Duration       string `json:"duration"`
	DistanceMeters *int   `json:"distanceMeters"`
}

type encodedPolyline struct {
	EncodedPolyline string `json:"encodedPolyline"`
}

type step struct {
	TravelMode     string           `json:"travelMode"`
	StaticDuration string           `json:"staticDuration"`
	DistanceMeters int              `json:"distanceMeters"`
	StartLocation  *location        `json:"startLocation"`
	EndLocation    *location        `json:"endLocation"`
	Polyline       *encodedPolyline `json:"polyline"`
	TransitDetails *transitDetails  `json:"transitDetails"`
}

type transitDetails struct {
	StopDetails struct {
		DepartureStop *namedStop `json:"departureStop"`
		ArrivalStop   *namedStop `json:"arrivalStop"`
	} `json:"stopDetails"`
	TransitLine struct {
		Name      string `json:"name"`
		NameShort string `json:"nameShort"`
		Vehicle   struct {
			Type string `json:"type"`
		} `json:"vehicle"`
		Agencies []struct {
			Name string `json:"name"`
		} `json:"agencies"`
	} `json:"transitLine"`
	Headsign  string `json:"headsign"`
	StopCount int    `json:"stopCount"`
}

type namedStop struct {
	Name string `json:"name"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
