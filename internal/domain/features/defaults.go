package features

// Feature names produced by the deriver.
const (
	DistanceNumeric = "distance_numeric"
	RaceClass       = "race_class_score"
	Weight          = "weight"
	Age             = "age"
	Barrier         = "barrier"
	Year            = "year"
	Month           = "month"
	Day             = "day"
	DayOfWeek       = "day_of_week"
	WeekOfYear      = "week_of_year"
	AgeFactor       = "age_factor"
	JockeyUnknown   = "jockey_unknown"

	DaysSinceLastRace     = "days_since_last_race"
	RestFactor            = "rest_factor"
	FormTrend             = "form_trend"
	ClassRiseFall         = "class_rise_fall"
	WeightDifferential    = "weight_differential"
	DaysSinceTrackWin     = "days_since_track_win"
	DaysSinceTrackWinNorm = "days_since_track_win_norm"
	RankRollingMean10     = "horse_rank_rolling_mean_10"
	RankRollingStd10      = "horse_rank_rolling_std_10"
	Top3RollingMean5      = "horse_top3_rate_rolling_mean_5"
	Top3RollingStd5       = "horse_top3_rate_rolling_std_5"
	PerfRollingMean5      = "horse_perf_avg_rolling_mean_5"
	PerfRollingStd5       = "horse_perf_avg_rolling_std_5"
	PrevPerfIndex         = "prev_perf_index"
	DecayForm90           = "horse_name_decay_form_90"
	TrackDistAvgPos       = "track_dist_avg_pos"
	BarrierAdvantage      = "barrier_track_advantage"
	JockeyWinRate         = "jockey_win_rate"
	TrainerWinRate        = "trainer_win_rate"
)

// One-hot prefixes; the indicator name is prefix + observed value.
const (
	TrackPrefix          = "track_"
	RaceTypePrefix       = "race_type_"
	TrackConditionPrefix = "track_condition_"
)

// UnknownFeatureDefault fills schema names the deriver has no rule for,
// including indicators of categories that were not observed.
const UnknownFeatureDefault = 0.0

// noTrackWinDays stands in for "never won here".
const noTrackWinDays = 999.0

// Defaults is the documented neutral value of every derived feature when its
// inputs are unavailable (no history, unparsable attribute). Each entry can be
// overridden with WithDefault.
var Defaults = map[string]float64{
	DistanceNumeric: 0.0,
	RaceClass:       0.0,
	Weight:          0.0,
	Age:             0.0,
	Barrier:         0.0,
	Year:            0.0,
	Month:           0.0,
	Day:             0.0,
	DayOfWeek:       0.0,
	WeekOfYear:      0.0,
	AgeFactor:       0.8,
	JockeyUnknown:   0.0,

	DaysSinceLastRace:     0.0,
	RestFactor:            1.0, // rest factor of the 30-day assumption
	FormTrend:             0.5,
	ClassRiseFall:         0.0,
	WeightDifferential:    0.0,
	DaysSinceTrackWin:     noTrackWinDays,
	DaysSinceTrackWinNorm: 0.0,
	RankRollingMean10:     0.0,
	RankRollingStd10:      0.0,
	Top3RollingMean5:      0.0,
	Top3RollingStd5:       0.0,
	PerfRollingMean5:      0.0,
	PerfRollingStd5:       0.0,
	PrevPerfIndex:         0.0,
	DecayForm90:           0.0,
	TrackDistAvgPos:       0.0,
	BarrierAdvantage:      0.5,
	JockeyWinRate:         0.1,
	TrainerWinRate:        0.1,
}
