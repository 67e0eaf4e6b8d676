// optcli 批量期权定价命令行工具
// price 子命令按 CSV 合约清单计算权利金与希腊字母
// iv 子命令按目标权利金反解隐含波动率
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/wyfcoding/optionpricing/internal/pricing/domain"
)

// ContractRow CSV 输入行
// price 子命令使用 volatility 列, iv 子命令使用 target_premium 列
type ContractRow struct {
	Symbol        string  `csv:"symbol"`
	OptionType    string  `csv:"option_type"`
	Underlying    string  `csv:"underlying"`
	Settlement    string  `csv:"settlement"`
	Spot          float64 `csv:"spot"`
	Strike        float64 `csv:"strike"`
	TimeToExpiry  float64 `csv:"time_to_expiry"`
	Volatility    float64 `csv:"volatility"`
	RiskFreeRate  float64 `csv:"rate"`
	DividendYield float64 `csv:"dividend_yield"`
	TargetPremium float64 `csv:"target_premium"`
}

// PriceRow 定价输出行
type PriceRow struct {
	Symbol string  `csv:"symbol"`
	Model  string  `csv:"model"`
	Prima  float64 `csv:"prima"`
	Delta  float64 `csv:"delta"`
	Gamma  float64 `csv:"gamma"`
	GammaP float64 `csv:"gammap"`
	Theta  float64 `csv:"theta"`
	Vega   float64 `csv:"vega"`
	Rho    float64 `csv:"rho"`
}

// IVRow 隐含波动率输出行, 未收敛时 implied_vol 为 NA
type IVRow struct {
	Symbol        string  `csv:"symbol"`
	Model         string  `csv:"model"`
	TargetPremium float64 `csv:"target_premium"`
	ImpliedVol    string  `csv:"implied_vol"`
}

var rootCmd = &cobra.Command{
	Use:   "optcli",
	Short: "Batch option pricing from CSV contract lists",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var priceCmd = &cobra.Command{
	Use:   "price --in contracts.csv",
	Short: "Price each contract row and print premium plus greeks",
	RunE: func(cmd *cobra.Command, args []string) error {
		inPath, err := cmd.Flags().GetString("in")
		if err != nil {
			return err
		}
		outPath, err := cmd.Flags().GetString("out")
		if err != nil {
			return err
		}
		engine, err := engineFromFlags(cmd)
		if err != nil {
			return err
		}

		rows, err := loadContractRows(inPath)
		if err != nil {
			return err
		}

		results := make([]*PriceRow, 0, len(rows))
		for i, row := range rows {
			contract, err := row.contract()
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			contract.Volatility = row.Volatility

			greeks, err := engine.greeks(contract)
			if err != nil {
				return fmt.Errorf("row %d (%s): %w", i+1, row.Symbol, err)
			}
			results = append(results, &PriceRow{
				Symbol: row.Symbol,
				Model:  string(engine.model),
				Prima:  greeks.Prima,
				Delta:  greeks.Delta,
				Gamma:  greeks.Gamma,
				GammaP: greeks.GammaP,
				Theta:  greeks.Theta,
				Vega:   greeks.Vega,
				Rho:    greeks.Rho,
			})
		}

		renderPriceTable(results)
		if outPath != "" {
			if err := writeCSV(outPath, &results); err != nil {
				return err
			}
			fmt.Println("CSV file written to:", outPath)
		}
		return nil
	},
}

var ivCmd = &cobra.Command{
	Use:   "iv --in targets.csv",
	Short: "Solve implied volatility for each contract row's target premium",
	RunE: func(cmd *cobra.Command, args []string) error {
		inPath, err := cmd.Flags().GetString("in")
		if err != nil {
			return err
		}
		outPath, err := cmd.Flags().GetString("out")
		if err != nil {
			return err
		}
		engine, err := engineFromFlags(cmd)
		if err != nil {
			return err
		}

		rows, err := loadContractRows(inPath)
		if err != nil {
			return err
		}

		results := make([]*IVRow, 0, len(rows))
		for i, row := range rows {
			contract, err := row.contract()
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}

			vol, err := engine.impliedVol(contract, row.TargetPremium)
			cell := strconv.FormatFloat(vol, 'f', 6, 64)
			if err != nil {
				if !errors.Is(err, domain.ErrNoConvergence) {
					return fmt.Errorf("row %d (%s): %w", i+1, row.Symbol, err)
				}
				cell = "NA"
			}
			results = append(results, &IVRow{
				Symbol:        row.Symbol,
				Model:         string(engine.model),
				TargetPremium: row.TargetPremium,
				ImpliedVol:    cell,
			})
		}

		renderIVTable(results)
		if outPath != "" {
			if err := writeCSV(outPath, &results); err != nil {
				return err
			}
			fmt.Println("CSV file written to:", outPath)
		}
		return nil
	},
}

// engine 根据命令行标志选定的定价模型与行权方式
type engine struct {
	model domain.PricingModelType
	style domain.ExerciseStyle
	steps int
}

func engineFromFlags(cmd *cobra.Command) (*engine, error) {
	modelFlag, err := cmd.Flags().GetString("model")
	if err != nil {
		return nil, err
	}
	styleFlag, err := cmd.Flags().GetString("style")
	if err != nil {
		return nil, err
	}
	steps, err := cmd.Flags().GetInt("steps")
	if err != nil {
		return nil, err
	}

	model, err := domain.ParsePricingModel(modelFlag)
	if err != nil {
		return nil, fmt.Errorf("--model %q: %w", modelFlag, err)
	}
	style, err := resolveStyle(model, styleFlag)
	if err != nil {
		return nil, err
	}
	return &engine{model: model, style: style, steps: steps}, nil
}

// resolveStyle 缺省时按模型取行权方式, 显式给定时校验与模型兼容
func resolveStyle(model domain.PricingModelType, styleFlag string) (domain.ExerciseStyle, error) {
	if styleFlag == "" {
		if model == domain.PricingModelBlackScholes {
			return domain.ExerciseEuropean, nil
		}
		return domain.ExerciseAmerican, nil
	}
	style, err := domain.ParseExerciseStyle(styleFlag)
	if err != nil {
		return "", fmt.Errorf("--style %q: %w", styleFlag, err)
	}
	if model == domain.PricingModelBlackScholes && style != domain.ExerciseEuropean {
		return "", fmt.Errorf("model %s prices european exercise only: %w", model, domain.ErrInvalidExerciseStyle)
	}
	if model == domain.PricingModelBjerksundStensland && style != domain.ExerciseAmerican {
		return "", fmt.Errorf("model %s prices american exercise only: %w", model, domain.ErrInvalidExerciseStyle)
	}
	return style, nil
}

func (e *engine) greeks(c domain.OptionContract) (domain.OptionGreeks, error) {
	switch e.model {
	case domain.PricingModelBlackScholes:
		return domain.NewBlackScholesModel().Greeks(c)
	case domain.PricingModelBinomial:
		return domain.NewBinomialModel().Greeks(c, e.style, e.steps)
	case domain.PricingModelBjerksundStensland:
		return domain.NewBjerksundStenslandModel().Greeks(c)
	}
	return domain.OptionGreeks{}, domain.ErrInvalidPricingModel
}

func (e *engine) impliedVol(c domain.OptionContract, target float64) (float64, error) {
	solver := domain.NewImpliedVolSolver()
	switch e.model {
	case domain.PricingModelBlackScholes:
		return solver.FromBlackScholes(c, target)
	case domain.PricingModelBinomial:
		return solver.FromBinomial(c, e.style, e.steps, target)
	case domain.PricingModelBjerksundStensland:
		return solver.FromBjerksundStensland(c, target)
	}
	return 0, domain.ErrInvalidPricingModel
}

// contract 将 CSV 行解析为领域合约, volatility 列由调用方按需填入
func (r *ContractRow) contract() (domain.OptionContract, error) {
	optionType, err := domain.ParseOptionType(r.OptionType)
	if err != nil {
		return domain.OptionContract{}, fmt.Errorf("option_type %q: %w", r.OptionType, err)
	}

	underlying := domain.UnderlyingEquity
	if r.Underlying != "" {
		underlying, err = domain.ParseUnderlyingType(r.Underlying)
		if err != nil {
			return domain.OptionContract{}, fmt.Errorf("underlying %q: %w", r.Underlying, err)
		}
	}

	var settlement domain.SettlementStyle
	if r.Settlement != "" {
		settlement, err = domain.ParseSettlementStyle(r.Settlement)
		if err != nil {
			return domain.OptionContract{}, fmt.Errorf("settlement %q: %w", r.Settlement, err)
		}
	}

	return domain.OptionContract{
		OptionType:      optionType,
		Underlying:      underlying,
		Settlement:      settlement,
		UnderlyingPrice: r.Spot,
		StrikePrice:     r.Strike,
		TimeToExpiry:    r.TimeToExpiry,
		RiskFreeRate:    r.RiskFreeRate,
		DividendYield:   r.DividendYield,
	}, nil
}

func loadContractRows(path string) ([]*ContractRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	var rows []*ContractRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal CSV: %w", err)
	}
	return rows, nil
}

func writeCSV(path string, rows interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("failed to marshal CSV: %w", err)
	}
	return nil
}

func renderPriceTable(rows []*PriceRow) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Symbol", "Model", "Prima", "Delta", "Gamma", "GammaP", "Theta", "Vega", "Rho"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, r := range rows {
		table.Append([]string{
			r.Symbol,
			r.Model,
			fmt.Sprintf("%.6f", r.Prima),
			fmt.Sprintf("%.6f", r.Delta),
			fmt.Sprintf("%.6f", r.Gamma),
			fmt.Sprintf("%.6f", r.GammaP),
			fmt.Sprintf("%.6f", r.Theta),
			fmt.Sprintf("%.6f", r.Vega),
			fmt.Sprintf("%.6f", r.Rho),
		})
	}
	table.Render()
}

func renderIVTable(rows []*IVRow) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Symbol", "Model", "Target", "ImpliedVol"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, r := range rows {
		table.Append([]string{
			r.Symbol,
			r.Model,
			fmt.Sprintf("%.6f", r.TargetPremium),
			r.ImpliedVol,
		})
	}
	table.Render()
}

func main() {
	for _, cmd := range []*cobra.Command{priceCmd, ivCmd} {
		cmd.Flags().String("in", "", "Path of the input contracts CSV.")
		cmd.Flags().String("out", "", "Optional path to write the results CSV to.")
		cmd.Flags().String("model", "BLACK_SCHOLES", "Pricing model: BLACK_SCHOLES, BINOMIAL or BJERKSUND_STENSLAND.")
		cmd.Flags().String("style", "", "Exercise style: EUROPEAN or AMERICAN. Defaults by model.")
		cmd.Flags().Int("steps", 100, "Lattice step count for the BINOMIAL model.")
		cmd.MarkFlagRequired("in")
	}

	rootCmd.AddCommand(priceCmd)
	rootCmd.AddCommand(ivCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
