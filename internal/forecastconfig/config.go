package forecastconfig

// Config는 수요 예측 파이프라인의 전체 설정
// 모든 임계값/윈도우/하이퍼파라미터는 여기서만 정의 (하드코딩 금지)
type Config struct {
	Meta          Meta          `yaml:"meta" json:"meta"`
	Qualification Qualification `yaml:"qualification" json:"qualification"`
	Features      Features      `yaml:"features" json:"features"`
	Models        Models        `yaml:"models" json:"models"`
	Evaluation    Evaluation    `yaml:"evaluation" json:"evaluation"`
}

// Meta 메타 정보
type Meta struct {
	ConfigID string `yaml:"config_id" json:"config_id"`
	Version  string `yaml:"version" json:"version"`
	Seed     int64  `yaml:"seed" json:"seed"` // recorded with every run
}

// Qualification S1: 예측 대상 판정 임계값
type Qualification struct {
	NewProductGraceDays     int     `yaml:"new_product_grace_days" json:"new_product_grace_days"`
	SalesRecencyWindowDays  int     `yaml:"sales_recency_window_days" json:"sales_recency_window_days"`
	MinRecentSaleDays       int     `yaml:"min_recent_sale_days" json:"min_recent_sale_days"`
	InventoryLookbackDays   int     `yaml:"inventory_lookback_days" json:"inventory_lookback_days"`
	MinMarginThreshold      float64 `yaml:"min_margin_threshold" json:"min_margin_threshold"`
	ProfitabilityWindowDays int     `yaml:"profitability_window_days" json:"profitability_window_days"`
	MaxStockoutRate         float64 `yaml:"max_stockout_rate" json:"max_stockout_rate"`
	MaxMissingDataRatio     float64 `yaml:"max_missing_data_ratio" json:"max_missing_data_ratio"`
	ClearanceMarkdownPct    float64 `yaml:"clearance_markdown_pct" json:"clearance_markdown_pct"` // 0 = disabled
	MaxProductAgeDays       int     `yaml:"max_product_age_days" json:"max_product_age_days"`     // 0 = disabled
}

// Features S2: 피처 윈도우
type Features struct {
	LagOffsets         []int `yaml:"lag_offsets" json:"lag_offsets"`
	RollingWindowDays  int   `yaml:"rolling_window_days" json:"rolling_window_days"`
	BaselineWindowDays int   `yaml:"baseline_window_days" json:"baseline_window_days"`
}

// MaxLag returns the largest lag offset
func (f Features) MaxLag() int {
	max := 0
	for _, k := range f.LagOffsets {
		if k > max {
			max = k
		}
	}
	return max
}

// Models S3: GBRT 하이퍼파라미터
type Models struct {
	Lag  GBRT `yaml:"lag" json:"lag"`
	Full GBRT `yaml:"full" json:"full"`
}

// GBRT holds gradient-boosted regression tree hyperparameters
type GBRT struct {
	NumTrees       int     `yaml:"num_trees" json:"num_trees"`
	MaxDepth       int     `yaml:"max_depth" json:"max_depth"`
	LearningRate   float64 `yaml:"learning_rate" json:"learning_rate"`
	MinSamplesLeaf int     `yaml:"min_samples_leaf" json:"min_samples_leaf"`
}

// Evaluation S4: 학습/검증 분할 및 평가 옵션
type Evaluation struct {
	TestDays           int  `yaml:"test_days" json:"test_days"`
	ExcludeZeroActuals bool `yaml:"exclude_zero_actuals" json:"exclude_zero_actuals"`
	PerProduct         bool `yaml:"per_product" json:"per_product"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Meta: Meta{
			ConfigID: "default",
			Version:  "1",
			Seed:     42,
		},
		Qualification: Qualification{
			NewProductGraceDays:     14,
			SalesRecencyWindowDays:  28,
			MinRecentSaleDays:       1,
			InventoryLookbackDays:   28,
			MinMarginThreshold:      0.0,
			ProfitabilityWindowDays: 28,
			MaxStockoutRate:         0.5,
			MaxMissingDataRatio:     0.1,
			ClearanceMarkdownPct:    0.3,
			MaxProductAgeDays:       0,
		},
		Features: Features{
			LagOffsets:         []int{7, 14, 28},
			RollingWindowDays:  28,
			BaselineWindowDays: 28,
		},
		Models: Models{
			Lag: GBRT{
				NumTrees:       100,
				MaxDepth:       3,
				LearningRate:   0.1,
				MinSamplesLeaf: 5,
			},
			Full: GBRT{
				NumTrees:       150,
				MaxDepth:       4,
				LearningRate:   0.05,
				MinSamplesLeaf: 5,
			},
		},
		Evaluation: Evaluation{
			TestDays:           28,
			ExcludeZeroActuals: false,
			PerProduct:         true,
		},
	}
}
