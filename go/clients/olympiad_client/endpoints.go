package olympiad_client

const (
	// Base URL
	DefaultBaseURL = "http://localhost:8000"

	// API Endpoints
	LoginEndpoint         = "/api/login"
	CreateMatchEndpoint   = "/api/match/create"
	JoinMatchEndpoint     = "/api/match/join"
	SubmitMatchEndpoint   = "/api/match/submit"
	MatchEndpoint         = "/api/match/%d"
	ActiveMatchesEndpoint = "/api/matches"
	ProblemEndpoint       = "/api/problem/%d"
	PlatformStatsEndpoint = "/api/stats"
	UserStatsEndpoint     = "/api/user/%d"

	// Optional machine-readable error codes in a failed envelope
	CodeNotFound  = "not_found"
	CodeForbidden = "forbidden"
	CodeInvalid   = "invalid"

	// Sent without a code when a non-participant submits
	MessageNotParticipant = "Вы не участник этого матча"
)
