package http

import (
	"strings"
	"testing"

	"case-reasons-training/internal/app"
	"case-reasons-training/internal/auth"
	"case-reasons-training/internal/domain"
	"case-reasons-training/internal/infra/memory"
	"case-reasons-training/internal/narrator"
	"case-reasons-training/internal/taxonomy"
)

var sampleScenarios = []domain.Scenario{
	{Reason1: "Billing", Reason2: "Refund", Description: "Customer wants money back"},
	{Reason1: "Billing", Reason2: "Refund", Reason3: "Duplicate Charge", Description: "Customer was charged twice"},
	{Reason1: "Account", Reason2: "Login"},
}

func newTestService(t *testing.T, board app.LeaderboardStore) *app.QuizService {
	t.Helper()
	hash, err := auth.HashSecret("letmein")
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}
	return app.NewQuizService(memory.NewSessionStore(), board, taxonomy.New(sampleScenarios), app.Options{
		Authenticator: auth.NewBcryptAuthenticator(auth.Options{AdminSecretHash: hash}),
		Narrator:      narrator.Fallback{},
	})
}

// answerFor resolves the right classification from the rendered message.
func answerFor(t *testing.T, message string) domain.Choice {
	t.Helper()
	for _, sc := range sampleScenarios {
		if sc.HasDescription() && strings.HasSuffix(message, sc.Description) {
			return domain.Choice{Reason1: sc.Reason1, Reason2: sc.Reason2, Reason3: sc.Reason3}
		}
	}
	t.Fatalf("no scenario matches message %q", message)
	return domain.Choice{}
}
