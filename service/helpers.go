package service

import (
	"context"
	"fmt"

	"github.com/emzola/circulation/policy"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// background runs fn in a goroutine tracked by the service wait group and
// logs any panic instead of crashing the process.
func (s *service) background(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if err := recover(); err != nil {
				s.logger.PrintError(fmt.Errorf("%s", err), nil)
			}
		}()
		fn()
	}()
}

// sendMail delivers a templated message in the background.
func (s *service) sendMail(recipient, templateFile string, data any) {
	s.background(func() {
		err := s.mailer.Send(recipient, templateFile, data)
		if err != nil {
			s.logger.PrintError(err, map[string]string{
				"template":  templateFile,
				"recipient": recipient,
			})
		}
	})
}

func authorize(actor policy.Actor, action policy.Action, resource policy.Resource, ownerID *int64) error {
	return decisionError(policy.CanPerform(actor, action, resource, ownerID))
}

func (s *service) startSpan(ctx context.Context, name string, actor policy.Actor, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if actor != nil {
		attrs = append(attrs,
			attribute.Int64("actor.id", actor.Identity()),
			attribute.Bool("actor.staff", actor.IsStaff()),
		)
	}
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
