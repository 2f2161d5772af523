package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"payment-challenge-service/flighting"
	"payment-challenge-service/models"

	"go.uber.org/zap"
)

// SafetyNetRule excludes one downstream error surface from the bypass: a
// matching failure propagates instead of being swallowed. Status 0 matches
// any HTTP status, an empty Code matches any error code, and an empty
// Channel matches every device channel.
type SafetyNetRule struct {
	Flow    string
	Status  int
	Code    string
	Channel models.DeviceChannel
}

// ParseSafetyNetRules parses a comma-separated rule list of the form
// "flow:status:code[:channel]". A "*" status or code is a wildcard. Parsing
// happens once at startup so malformed rules fail the boot, not a request.
func ParseSafetyNetRules(raw string) ([]SafetyNetRule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var rules []SafetyNetRule
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("malformed safety-net rule %q", entry)
		}

		rule := SafetyNetRule{Flow: strings.ToLower(parts[0])}
		if rule.Flow == "" {
			return nil, fmt.Errorf("safety-net rule %q has empty flow", entry)
		}
		if parts[1] != "*" && parts[1] != "" {
			status, err := strconv.Atoi(parts[1])
			if err != nil {
				return nil, fmt.Errorf("safety-net rule %q has bad status: %w", entry, err)
			}
			rule.Status = status
		}
		if parts[2] != "*" {
			rule.Code = parts[2]
		}
		if len(parts) == 4 {
			rule.Channel = models.DeviceChannel(parts[3])
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (r SafetyNetRule) matches(flow string, serviceErr *models.ServiceError, channel models.DeviceChannel) bool {
	if !strings.EqualFold(r.Flow, flow) {
		return false
	}
	if r.Status != 0 && r.Status != serviceErr.StatusCode {
		return false
	}
	if r.Code != "" && !strings.EqualFold(r.Code, serviceErr.ErrorCode) {
		return false
	}
	if r.Channel != "" && !strings.EqualFold(string(r.Channel), string(channel)) {
		return false
	}
	return true
}

// SafetyNet wraps downstream provider calls so that infrastructure failures
// degrade to a bypassed challenge instead of blocking the purchase. Client
// validation errors always propagate, and the bypass can be switched off
// per flow by flight or per error surface by exclusion rule.
type SafetyNet struct {
	rules  []SafetyNetRule
	logger *zap.Logger
}

func NewSafetyNet(rules []SafetyNetRule, logger *zap.Logger) *SafetyNet {
	return &SafetyNet{rules: rules, logger: logger}
}

// Call runs op under the safety net. It returns bypassed=true when the
// operation failed but the failure was absorbed; the caller then treats the
// challenge as passed without authentication.
func (s *SafetyNet) Call(ctx context.Context, flow string, features flighting.Features, channel models.DeviceChannel, op func(context.Context) error) (bypassed bool, err error) {
	err = op(ctx)
	if err == nil {
		return false, nil
	}

	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return false, err
	}

	if features.EnforcedFor(flow, channel) {
		s.logger.Warn("safety net disabled by flight, surfacing failure",
			zap.String("flow", flow),
			zap.String("deviceChannel", string(channel)),
			zap.Error(err))
		return false, err
	}

	var serviceErr *models.ServiceError
	if errors.As(err, &serviceErr) {
		for _, rule := range s.rules {
			if rule.matches(flow, serviceErr, channel) {
				s.logger.Warn("safety net excluded by rule, surfacing failure",
					zap.String("flow", flow),
					zap.Int("statusCode", serviceErr.StatusCode),
					zap.String("errorCode", serviceErr.ErrorCode))
				return false, err
			}
		}
	}

	s.logger.Error("safety net absorbed downstream failure",
		zap.String("flow", flow),
		zap.String("deviceChannel", string(channel)),
		zap.Error(err))
	return true, nil
}
