// Package assistant produces automated replies for open tickets and
// decides when a conversation must be escalated to a human technician.
//
// Two responders are provided: RuleResponder answers from a keyword
// table and is fully offline; ProviderResponder delegates to an
// OpenAI-compatible chat API. Both share the same escalation rules:
// a per-ticket attempt cap, explicit requests for a human, and
// detection of the customer confirming their issue is fixed.
package assistant

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// DefaultMaxAttempts is how many automated replies a ticket gets before
// the assistant hands the conversation to a technician.
const DefaultMaxAttempts = 3

// Response is the outcome of one responder invocation. Exactly one of
// RequiresHuman and AutoResolved may be set; both false means the
// conversation stays with the assistant.
type Response struct {
	Text          string
	RequiresHuman bool
	AutoResolved  bool
}

// Responder produces the next automated reply for a ticket. It never
// returns an error: internal failures are mapped to a forced-escalation
// response so the customer always gets a visible answer.
type Responder interface {
	GetResponse(ctx context.Context, ticketID, userText string) Response
}

// Phrases the customer uses to confirm the problem is fixed.
var resolvedKeywords = []string{
	"resolveu", "resolvido", "funcionou", "deu certo", "consegui resolver",
}

// Phrases that request a human directly. These escalate immediately,
// bypassing the attempt counter.
var humanKeywords = []string{
	"falar com humano", "falar com atendente", "falar com um humano",
	"atendente humano", "técnico humano", "quero um humano",
}

// confirmsResolved reports whether the customer's message indicates the
// issue is fixed.
func confirmsResolved(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range resolvedKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// wantsHuman reports whether the customer explicitly asked for a person.
func wantsHuman(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range humanKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// protocolRef shortens a ticket id into the reference quoted to
// customers in escalation messages.
func protocolRef(ticketID string) string {
	if len(ticketID) > 8 {
		return strings.ToUpper(ticketID[:8])
	}
	return strings.ToUpper(ticketID)
}

func escalationResponse(ticketID string) Response {
	return Response{
		Text: fmt.Sprintf(
			"Não consegui resolver por aqui. Estou encaminhando o caso para um técnico humano. Protocolo: %s.",
			protocolRef(ticketID)),
		RequiresHuman: true,
	}
}

func failureResponse(ticketID string) Response {
	return Response{
		Text: fmt.Sprintf(
			"Ocorreu um erro ao processar sua solicitação. Encaminhando para um técnico humano. Protocolo: %s.",
			protocolRef(ticketID)),
		RequiresHuman: true,
	}
}

func autoResolvedResponse() Response {
	return Response{
		Text:         "Que ótimo! Fico feliz que o problema foi resolvido. Vou encerrar o seu chamado. 😊",
		AutoResolved: true,
	}
}

// rule maps trigger keywords to a canned reply.
type rule struct {
	keywords []string
	reply    string
}

var defaultRules = []rule{
	{
		keywords: []string{"senha", "login", "acesso bloqueado"},
		reply:    "Vamos tentar redefinir sua senha. Acesse a página de login e clique em \"Esqueci minha senha\". Você receberá um link por e-mail. Funcionou?",
	},
	{
		keywords: []string{"impressora", "imprimir"},
		reply:    "Verifique se a impressora está ligada e conectada à rede. Em seguida, remova e adicione a impressora novamente nas configurações. O problema foi resolvido?",
	},
	{
		keywords: []string{"internet", "rede", "wifi", "wi-fi", "vpn"},
		reply:    "Tente desconectar e reconectar à rede. Se estiver usando VPN, reinicie o cliente VPN. A conexão voltou a funcionar?",
	},
	{
		keywords: []string{"email", "e-mail", "outlook"},
		reply:    "Feche e abra novamente o aplicativo de e-mail e confira se há atualizações pendentes. Conseguiu acessar sua caixa de entrada?",
	},
	{
		keywords: []string{"lento", "lentidão", "travando"},
		reply:    "Reinicie o computador e feche os programas que não está usando. O desempenho melhorou?",
	},
}

const genericReply = "Entendi. Você pode me dar mais detalhes sobre o problema? Por exemplo, quando ele começou e se aparece alguma mensagem de erro."

// RuleResponder answers from a keyword table. It is used when no
// language-model provider is configured.
type RuleResponder struct {
	attempts    AttemptStore
	maxAttempts int
	rules       []rule
	logger      *log.Logger
}

// RuleOption configures a RuleResponder.
type RuleOption func(*RuleResponder)

// WithRuleLogger sets a custom logger.
func WithRuleLogger(l *log.Logger) RuleOption {
	return func(r *RuleResponder) { r.logger = l }
}

// WithMaxAttempts overrides the escalation cap.
func WithMaxAttempts(n int) RuleOption {
	return func(r *RuleResponder) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// NewRuleResponder creates a keyword-based responder backed by the
// given attempt store.
func NewRuleResponder(attempts AttemptStore, opts ...RuleOption) *RuleResponder {
	r := &RuleResponder{
		attempts:    attempts,
		maxAttempts: DefaultMaxAttempts,
		rules:       defaultRules,
		logger:      log.New(log.Writer(), "[ASSISTANT] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetResponse implements Responder.
func (r *RuleResponder) GetResponse(ctx context.Context, ticketID, userText string) Response {
	if confirmsResolved(userText) {
		return autoResolvedResponse()
	}
	if wantsHuman(userText) {
		return escalationResponse(ticketID)
	}

	before, err := r.attempts.Get(ctx, ticketID)
	if err != nil {
		r.logger.Printf("attempt store get failed for ticket %s: %v", ticketID, err)
		return failureResponse(ticketID)
	}
	if before >= r.maxAttempts {
		return escalationResponse(ticketID)
	}

	n, err := r.attempts.Increment(ctx, ticketID)
	if err != nil {
		r.logger.Printf("attempt store increment failed for ticket %s: %v", ticketID, err)
		return failureResponse(ticketID)
	}
	if n >= r.maxAttempts {
		return escalationResponse(ticketID)
	}

	return Response{Text: r.matchRule(userText)}
}

func (r *RuleResponder) matchRule(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range r.rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.reply
			}
		}
	}
	return genericReply
}
