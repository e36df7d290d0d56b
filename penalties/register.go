package penalties

import (
	"encoding/json"

	sn "github.com/sharnoff/splitnet"
)

func init() {
	list := map[string]func() sn.Penalty{
		"l1-lasso":    func() sn.Penalty { return new(l1) },
		"l2-ridge":    func() sn.Penalty { return new(l2) },
		"elastic-net": func() sn.Penalty { return new(elasticNet) },
	}

	for name, f := range list {
		if err := sn.RegisterPenalty(name, f); err != nil {
			panic(err.Error())
		}
	}
}

type lambdaJSON struct {
	Lambda float64 `json:"lambda"`
}

func (p l1) MarshalJSON() ([]byte, error) {
	return json.Marshal(lambdaJSON{float64(p)})
}

func (p *l1) UnmarshalJSON(data []byte) error {
	var js lambdaJSON
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}

	*p = l1(js.Lambda)
	return nil
}

func (p l2) MarshalJSON() ([]byte, error) {
	return json.Marshal(lambdaJSON{float64(p)})
}

func (p *l2) UnmarshalJSON(data []byte) error {
	var js lambdaJSON
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}

	*p = l2(js.Lambda)
	return nil
}

type elasticNetJSON struct {
	Alpha  float64 `json:"alpha"`
	Lambda float64 `json:"lambda"`
}

func (p elasticNet) MarshalJSON() ([]byte, error) {
	return json.Marshal(elasticNetJSON{p.alpha, p.lambda})
}

func (p *elasticNet) UnmarshalJSON(data []byte) error {
	var js elasticNetJSON
	if err := json.Unmarshal(data, &js); err != nil {
		return err
	}

	p.alpha, p.lambda = js.Alpha, js.Lambda
	return nil
}
