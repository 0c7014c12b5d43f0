package util

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// AnswerToString creates a user-friendly representation of an answer section
func AnswerToString(answer []dns.RR) string {
	answers := make([]string, len(answer))

	for i, record := range answer {
		switch v := record.(type) {
		case *dns.A:
			answers[i] = fmt.Sprintf("A (%s)", v.A)
		case *dns.AAAA:
			answers[i] = fmt.Sprintf("AAAA (%s)", v.AAAA)
		case *dns.CNAME:
			answers[i] = fmt.Sprintf("CNAME (%s)", v.Target)
		case *dns.NS:
			answers[i] = fmt.Sprintf("NS (%s)", v.Ns)
		case *dns.DS:
			answers[i] = fmt.Sprintf("DS (keytag %d)", v.KeyTag)
		case *dns.DNSKEY:
			answers[i] = fmt.Sprintf("DNSKEY (flags %d)", v.Flags)
		case *dns.RRSIG:
			answers[i] = fmt.Sprintf("RRSIG (%s)", dns.TypeToString[v.TypeCovered])
		default:
			answers[i] = fmt.Sprint(record)
		}
	}

	return strings.Join(answers, ", ")
}

// QuestionToString creates a user-friendly representation of a question section
func QuestionToString(questions []dns.Question) string {
	result := make([]string, len(questions))
	for i, question := range questions {
		result[i] = fmt.Sprintf("%s (%s)", dns.TypeToString[question.Qtype], question.Name)
	}

	return strings.Join(result, ", ")
}

// NewMsgWithQuestion creates new DNS message with question
func NewMsgWithQuestion(question string, mType uint16) *dns.Msg {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(question), mType)

	return msg
}
