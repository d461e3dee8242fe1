package probe

import "net/http"

// BuiltinPlan returns the probe groups for the HTTP lab. Each group is
// worth 16 points: 8 completeness, 4 correctness, 4 quality. Groups with
// several probes split the allowance, and the scoring bands clamp any
// overage.
func BuiltinPlan() []Group {
	return []Group{
		{
			Name: "server",
			Probes: []Spec{{
				Name:      "boot",
				Method:    http.MethodGet,
				Path:      "/",
				AnyStatus: true,
				Points:    Points{Completeness: 8, Correctness: 4, Quality: 4},
			}},
		},
		{
			Name: "root",
			Probes: []Spec{{
				Name:          "home",
				Method:        http.MethodGet,
				Path:          "/",
				SuccessStatus: http.StatusOK,
				Points:        Points{Completeness: 8, Correctness: 4, Quality: 4},
			}},
		},
		{
			Name: "echo",
			Probes: []Spec{
				{
					Name:          "echo-ok",
					Method:        http.MethodGet,
					Path:          "/echo?name=Ali&age=22",
					SuccessStatus: http.StatusOK,
					Shape:         SuccessEnvelope("name", "age"),
					Points:        Points{Completeness: 4, Correctness: 2, Quality: 2},
				},
				{
					Name:          "echo-missing-age",
					Method:        http.MethodGet,
					Path:          "/echo?name=Ali",
					SuccessStatus: http.StatusOK,
					FailureStatus: http.StatusBadRequest,
					Shape:         ErrorEnvelope,
					Points:        Points{Completeness: 4, Correctness: 2, Quality: 2},
				},
			},
		},
		{
			Name: "profile",
			Probes: []Spec{{
				Name:          "profile-path",
				Method:        http.MethodGet,
				Path:          "/profile/ali/7",
				SuccessStatus: http.StatusOK,
				Shape:         NonEmptyObject,
				Points:        Points{Completeness: 8, Correctness: 4, Quality: 4},
			}},
		},
		{
			Name: "users",
			Probes: []Spec{
				{
					Name:          "user-by-id",
					Method:        http.MethodGet,
					Path:          "/users/42",
					SuccessStatus: http.StatusOK,
					Shape:         SuccessEnvelope(),
					Points:        Points{Completeness: 4, Correctness: 2, Quality: 2},
				},
				{
					Name:          "user-non-numeric",
					Method:        http.MethodGet,
					Path:          "/users/abc",
					SuccessStatus: http.StatusOK,
					FailureStatus: http.StatusBadRequest,
					Shape:         ErrorEnvelope,
					Points:        Points{Completeness: 2, Correctness: 1, Quality: 1},
				},
				{
					Name:          "user-negative",
					Method:        http.MethodGet,
					Path:          "/users/-5",
					SuccessStatus: http.StatusOK,
					FailureStatus: http.StatusBadRequest,
					Shape:         ErrorEnvelope,
					Points:        Points{Completeness: 2, Correctness: 1, Quality: 1},
				},
			},
		},
	}
}
