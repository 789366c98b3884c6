package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/luff543/EventChatBotBackend/internal/model"
	"github.com/luff543/EventChatBotBackend/pkg/metrics"
)

const defaultConfidence = 0.7

type profileRow struct {
	SessionID          string          `db:"session_id"`
	VisitCount         int             `db:"visit_count"`
	TotalInteractions  int             `db:"total_interactions"`
	SatisfactionScore  sql.NullFloat64 `db:"satisfaction_score"`
	PersonalityTraits  string          `db:"personality_traits"`
	CommunicationStyle string          `db:"communication_style"`
	EngagementPatterns string          `db:"engagement_patterns"`
	LastActivity       string          `db:"last_activity"`
	CreatedAt          string          `db:"created_at"`
	UpdatedAt          string          `db:"updated_at"`
}

type interestRow struct {
	Interest   string  `db:"interest"`
	Confidence float64 `db:"confidence"`
	Source     string  `db:"source"`
	CreatedAt  string  `db:"created_at"`
	UpdatedAt  string  `db:"updated_at"`
}

type preferenceRow struct {
	Type       string  `db:"preference_type"`
	Value      string  `db:"preference_value"`
	Confidence float64 `db:"confidence"`
	CreatedAt  string  `db:"created_at"`
	UpdatedAt  string  `db:"updated_at"`
}

type behaviorRow struct {
	Type      string `db:"behavior_type"`
	Data      string `db:"behavior_data"`
	Timestamp string `db:"timestamp"`
}

type feedbackRow struct {
	Type      string          `db:"feedback_type"`
	Value     string          `db:"feedback_value"`
	Rating    sql.NullFloat64 `db:"rating"`
	Context   string          `db:"context"`
	CreatedAt string          `db:"created_at"`
}

// EnsureProfile creates the profile row if it does not exist yet. Profiles
// are created lazily on first reference, not at session creation.
func (s *Store) EnsureProfile(ctx context.Context, sessionID string) error {
	now := nowUTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (session_id, visit_count, total_interactions, last_activity, created_at, updated_at)
		VALUES (?, 1, 0, ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING`,
		sessionID, now, now, now,
	)
	return err
}

// GetProfile returns the full profile: row plus interests, bucketed
// preferences, recent behaviors (most recent first, capped) and the feedback
// history. A missing profile yields a freshly initialized default rather
// than an error.
func (s *Store) GetProfile(ctx context.Context, sessionID string) (*model.ProfileData, error) {
	if err := s.EnsureProfile(ctx, sessionID); err != nil {
		return nil, err
	}

	var row profileRow
	err := s.db.GetContext(ctx, &row, `
		SELECT session_id, visit_count, total_interactions, satisfaction_score,
		       personality_traits, communication_style, engagement_patterns,
		       last_activity, created_at, updated_at
		FROM user_profiles WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}

	profile := &model.ProfileData{
		SessionID:          row.SessionID,
		VisitCount:         row.VisitCount,
		TotalInteractions:  row.TotalInteractions,
		LastActivity:       parseTime(row.LastActivity),
		CreatedAt:          parseTime(row.CreatedAt),
		PersonalityTraits:  decodeTraits(row.PersonalityTraits),
		CommunicationStyle: decodeTraits(row.CommunicationStyle),
		EngagementPatterns: decodeTraits(row.EngagementPatterns),
	}
	if row.SatisfactionScore.Valid {
		score := row.SatisfactionScore.Float64
		profile.SatisfactionScore = &score
	}

	var interests []interestRow
	if err := s.db.SelectContext(ctx, &interests, `
		SELECT interest, confidence, source, created_at, updated_at
		FROM user_interests WHERE session_id = ?
		ORDER BY confidence DESC, interest ASC`, sessionID); err != nil {
		return nil, err
	}
	for _, r := range interests {
		profile.Interests = append(profile.Interests, model.Interest{
			Name:       r.Interest,
			Confidence: r.Confidence,
			Source:     model.InterestSource(r.Source),
			CreatedAt:  parseTime(r.CreatedAt),
			UpdatedAt:  parseTime(r.UpdatedAt),
		})
	}

	var prefs []preferenceRow
	if err := s.db.SelectContext(ctx, &prefs, `
		SELECT preference_type, preference_value, confidence, created_at, updated_at
		FROM user_preferences WHERE session_id = ?
		ORDER BY confidence DESC, preference_value ASC`, sessionID); err != nil {
		return nil, err
	}
	profile.Preferences = bucketPreferences(prefs)

	var behaviors []behaviorRow
	if err := s.db.SelectContext(ctx, &behaviors, `
		SELECT behavior_type, behavior_data, timestamp
		FROM user_behaviors WHERE session_id = ?
		ORDER BY timestamp DESC, id DESC LIMIT 10`, sessionID); err != nil {
		return nil, err
	}
	for _, r := range behaviors {
		profile.RecentBehaviors = append(profile.RecentBehaviors, model.BehaviorEvent{
			Type:      r.Type,
			Data:      decodeTraits(r.Data),
			Timestamp: parseTime(r.Timestamp),
		})
	}

	var feedback []feedbackRow
	if err := s.db.SelectContext(ctx, &feedback, `
		SELECT feedback_type, feedback_value, rating, context, created_at
		FROM user_feedback WHERE session_id = ?
		ORDER BY created_at ASC, id ASC`, sessionID); err != nil {
		return nil, err
	}
	for _, r := range feedback {
		fb := model.Feedback{
			Type:      r.Type,
			Value:     r.Value,
			Context:   decodeTraits(r.Context),
			CreatedAt: parseTime(r.CreatedAt),
		}
		if r.Rating.Valid {
			rating := r.Rating.Float64
			fb.Rating = &rating
		}
		profile.FeedbackHistory = append(profile.FeedbackHistory, fb)
	}

	return profile, nil
}

// bucketPreferences folds preference rows into the bucketed view. Rows arrive
// ordered by confidence descending, so the single-valued buckets keep the
// strongest observation.
func bucketPreferences(rows []preferenceRow) model.ActivityPreferences {
	var prefs model.ActivityPreferences
	for _, r := range rows {
		switch model.PreferenceType(r.Type) {
		case model.PrefCategory:
			prefs.PreferredCategories = append(prefs.PreferredCategories, r.Value)
		case model.PrefLocation:
			prefs.PreferredLocations = append(prefs.PreferredLocations, r.Value)
		case model.PrefTime:
			prefs.PreferredTimes = append(prefs.PreferredTimes, r.Value)
		case model.PrefGroupSize:
			if prefs.GroupPreference == "" {
				prefs.GroupPreference = r.Value
			}
		case model.PrefBudget:
			if prefs.BudgetSensitivity == "" {
				prefs.BudgetSensitivity = r.Value
			}
		}
	}
	return prefs
}

// UpsertInterest records an interest observation. An existing (profile, name)
// row is reinforced toward 1.0; a new one starts at confidence (0 means the
// default 0.7).
func (s *Store) UpsertInterest(ctx context.Context, sessionID, name string, confidence float64, source model.InterestSource) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := upsertInterestTx(ctx, tx, sessionID, name, confidence, source); err != nil {
			return err
		}
		return touchProfileTx(ctx, tx, sessionID)
	})
}

func upsertInterestTx(ctx context.Context, tx *sqlx.Tx, sessionID, name string, confidence float64, source model.InterestSource) error {
	if confidence <= 0 {
		confidence = defaultConfidence
	}
	if source == "" {
		source = model.SourceConversation
	}
	now := nowUTC()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_interests (session_id, interest, confidence, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, interest) DO UPDATE SET
			confidence = MIN(user_interests.confidence + 0.1, 1.0),
			updated_at = excluded.updated_at`,
		sessionID, name, confidence, string(source), now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting interest %q: %w", name, err)
	}
	metrics.RecordProfileWrite("interest")
	return nil
}

// UpsertPreference records a (type, value) preference observation with the
// same reinforcement semantics as interests.
func (s *Store) UpsertPreference(ctx context.Context, sessionID string, ptype model.PreferenceType, value string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := upsertPreferenceTx(ctx, tx, sessionID, ptype, value); err != nil {
			return err
		}
		return touchProfileTx(ctx, tx, sessionID)
	})
}

func upsertPreferenceTx(ctx context.Context, tx *sqlx.Tx, sessionID string, ptype model.PreferenceType, value string) error {
	now := nowUTC()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_preferences (session_id, preference_type, preference_value, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, preference_type, preference_value) DO UPDATE SET
			confidence = MIN(user_preferences.confidence + 0.1, 1.0),
			updated_at = excluded.updated_at`,
		sessionID, string(ptype), value, defaultConfidence, now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting preference %s=%q: %w", ptype, value, err)
	}
	metrics.RecordProfileWrite("preference")
	return nil
}

// UpdateTraits shallow-merges incoming trait maps into the stored ones:
// incoming keys overwrite, absent keys are preserved.
func (s *Store) UpdateTraits(ctx context.Context, sessionID string, personality, communication, engagement map[string]any) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := updateTraitsTx(ctx, tx, sessionID, personality, communication, engagement); err != nil {
			return err
		}
		return touchProfileTx(ctx, tx, sessionID)
	})
}

func updateTraitsTx(ctx context.Context, tx *sqlx.Tx, sessionID string, personality, communication, engagement map[string]any) error {
	var row profileRow
	err := tx.GetContext(ctx, &row, `
		SELECT session_id, visit_count, total_interactions, satisfaction_score,
		       personality_traits, communication_style, engagement_patterns,
		       last_activity, created_at, updated_at
		FROM user_profiles WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("loading traits: %w", err)
	}

	merged := func(stored string, incoming map[string]any) string {
		existing := decodeTraits(stored)
		for k, v := range incoming {
			existing[k] = v
		}
		return encodeTraits(existing)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE user_profiles SET
			personality_traits = ?,
			communication_style = ?,
			engagement_patterns = ?
		WHERE session_id = ?`,
		merged(row.PersonalityTraits, personality),
		merged(row.CommunicationStyle, communication),
		merged(row.EngagementPatterns, engagement),
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("updating traits: %w", err)
	}
	metrics.RecordProfileWrite("traits")
	return nil
}

// AddBehavior appends an immutable behavior event.
func (s *Store) AddBehavior(ctx context.Context, sessionID, behaviorType string, data map[string]any) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := addBehaviorTx(ctx, tx, sessionID, behaviorType, data); err != nil {
			return err
		}
		return touchProfileTx(ctx, tx, sessionID)
	})
}

func addBehaviorTx(ctx context.Context, tx *sqlx.Tx, sessionID, behaviorType string, data map[string]any) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_behaviors (session_id, behavior_type, behavior_data, timestamp)
		VALUES (?, ?, ?, ?)`,
		sessionID, behaviorType, encodeTraits(data), nowUTC(),
	)
	if err != nil {
		return fmt.Errorf("adding behavior %q: %w", behaviorType, err)
	}
	metrics.RecordProfileWrite("behavior")
	return nil
}

// AddFeedback appends an immutable feedback record and refreshes the running
// satisfaction average from all rated feedback.
func (s *Store) AddFeedback(ctx context.Context, sessionID string, fb model.Feedback) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var rating any
		if fb.Rating != nil {
			rating = *fb.Rating
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_feedback (session_id, feedback_type, feedback_value, rating, context, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			sessionID, fb.Type, fb.Value, rating, encodeTraits(fb.Context), nowUTC(),
		)
		if err != nil {
			return fmt.Errorf("adding feedback: %w", err)
		}

		// Satisfaction is the mean of all ratings mapped from [1,5] onto the
		// unit interval.
		_, err = tx.ExecContext(ctx, `
			UPDATE user_profiles SET satisfaction_score = (
				SELECT AVG((rating - 1.0) / 4.0) FROM user_feedback
				WHERE session_id = ? AND rating IS NOT NULL
			) WHERE session_id = ?`, sessionID, sessionID)
		if err != nil {
			return fmt.Errorf("updating satisfaction: %w", err)
		}

		metrics.RecordProfileWrite("feedback")
		return touchProfileTx(ctx, tx, sessionID)
	})
}

// ApplyAnalysis writes a conversation analysis result through the upsert
// semantics as one atomic unit: all rows land or none do.
func (s *Store) ApplyAnalysis(ctx context.Context, sessionID string, analysis model.ConversationAnalysis) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, interest := range analysis.Interests {
			if err := upsertInterestTx(ctx, tx, sessionID, interest, 0, model.SourceConversation); err != nil {
				return err
			}
		}
		for _, v := range analysis.ActivityPreferences.PreferredCategories {
			if err := upsertPreferenceTx(ctx, tx, sessionID, model.PrefCategory, v); err != nil {
				return err
			}
		}
		for _, v := range analysis.ActivityPreferences.PreferredLocations {
			if err := upsertPreferenceTx(ctx, tx, sessionID, model.PrefLocation, v); err != nil {
				return err
			}
		}
		for _, v := range analysis.ActivityPreferences.PreferredTimes {
			if err := upsertPreferenceTx(ctx, tx, sessionID, model.PrefTime, v); err != nil {
				return err
			}
		}
		if v := analysis.ActivityPreferences.GroupPreference; v != "" {
			if err := upsertPreferenceTx(ctx, tx, sessionID, model.PrefGroupSize, v); err != nil {
				return err
			}
		}
		if v := analysis.ActivityPreferences.BudgetSensitivity; v != "" {
			if err := upsertPreferenceTx(ctx, tx, sessionID, model.PrefBudget, v); err != nil {
				return err
			}
		}

		if err := updateTraitsTx(ctx, tx, sessionID,
			analysis.PersonalityTraits, analysis.CommunicationStyle, analysis.EngagementPatterns); err != nil {
			return err
		}

		if err := addBehaviorTx(ctx, tx, sessionID, "profile_analysis", map[string]any{
			"interests_found": len(analysis.Interests),
		}); err != nil {
			return err
		}

		return touchProfileTx(ctx, tx, sessionID)
	})
}

// IncrementInteractions bumps the interaction counter and refreshes the
// activity timestamps.
func (s *Store) IncrementInteractions(ctx context.Context, sessionID string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE user_profiles SET total_interactions = total_interactions + 1
			WHERE session_id = ?`, sessionID); err != nil {
			return err
		}
		return touchProfileTx(ctx, tx, sessionID)
	})
}

// SetVisitCount records the derived visit count for a session's profile.
func (s *Store) SetVisitCount(ctx context.Context, sessionID string, visits int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_profiles SET visit_count = ?, updated_at = ?
		WHERE session_id = ?`, visits, nowUTC(), sessionID)
	return err
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func touchProfileTx(ctx context.Context, tx *sqlx.Tx, sessionID string) error {
	now := nowUTC()
	_, err := tx.ExecContext(ctx, `
		UPDATE user_profiles SET last_activity = ?, updated_at = ?
		WHERE session_id = ?`, now, now, sessionID)
	return err
}

func decodeTraits(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{}
	}
	return out
}

func encodeTraits(m map[string]any) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}
