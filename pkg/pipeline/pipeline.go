package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/bruin-data/medallion/pkg/catalog"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/yourbasic/graph"
)

const (
	AssetTypeNormalize = AssetType("bronze.normalize")
	AssetTypeMerge     = AssetType("bronze.merge")
	AssetTypeSilver    = AssetType("silver.build")
	AssetTypeGold      = AssetType("gold.build")
	AssetTypeView      = AssetType("gold.view")
	AssetTypeLog       = AssetType("quality.log")
	AssetTypeEmpty     = AssetType("empty")
)

type AssetType string

// Datasets holds the loaded inputs or the produced outputs of an asset, keyed by dataset name.
type Datasets map[string]*catalog.Dataset

// Get returns the named dataset, an empty one when it is absent.
func (d Datasets) Get(name string) *catalog.Dataset {
	ds, ok := d[name]
	if !ok || ds == nil {
		return &catalog.Dataset{}
	}
	return ds
}

// Transform computes the outputs of an asset from its fully loaded inputs.
type Transform func(ctx context.Context, inputs Datasets) (Datasets, error)

type DefaultTrueBool struct {
	Value *bool
}

func (b *DefaultTrueBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	b.Value = &v
	return nil
}

func (b DefaultTrueBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Bool())
}

func (b *DefaultTrueBool) Bool() bool {
	if b.Value == nil {
		return true
	}
	return *b.Value
}

func Blocking(v bool) DefaultTrueBool {
	return DefaultTrueBool{Value: &v}
}

type ColumnCheckValue struct {
	StringArray *[]string `json:"string_array"`
	Float       *float64  `json:"float"`
	String      *string   `json:"string"`
}

func (ccv *ColumnCheckValue) ToString() string {
	if ccv.StringArray != nil {
		return fmt.Sprintf("[%s]", strings.Join(*ccv.StringArray, ", "))
	}
	if ccv.Float != nil {
		return strconv.FormatFloat(*ccv.Float, 'f', -1, 64)
	}
	if ccv.String != nil {
		return *ccv.String
	}

	return ""
}

type ColumnCheck struct {
	Name     string           `json:"name"`
	Value    ColumnCheckValue `json:"value"`
	Blocking DefaultTrueBool  `json:"blocking"`
}

type Column struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Checks      []ColumnCheck `json:"checks"`
}

func (c *Column) HasCheck(check string) bool {
	for _, cc := range c.Checks {
		if cc.Name == check {
			return true
		}
	}

	return false
}

// CustomCheck is a boolean expression evaluated on every row of the checked dataset. Value is
// the number of rows allowed to violate it.
type CustomCheck struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Query       string          `json:"query"`
	Value       int64           `json:"value"`
	Blocking    DefaultTrueBool `json:"blocking"`
}

type Upstream struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type Asset struct {
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Type         AssetType     `json:"type"`
	Inputs       []string      `json:"inputs"`
	Outputs      []string      `json:"outputs"`
	Tags         []string      `json:"tags"`
	Columns      []Column      `json:"columns"`
	CustomChecks []CustomCheck `json:"custom_checks"`
	Transform    Transform     `json:"-"`

	upstream   []*Asset
	downstream []*Asset
	Upstreams  []Upstream `json:"upstreams"`
}

func (a *Asset) AddUpstream(asset *Asset) {
	a.upstream = append(a.upstream, asset)
	a.Upstreams = append(a.Upstreams, Upstream{Type: "asset", Value: asset.Name})
}

func (a *Asset) GetUpstream() []*Asset {
	return a.upstream
}

func (a *Asset) AddDownstream(asset *Asset) {
	a.downstream = append(a.downstream, asset)
}

func (a *Asset) GetDownstream() []*Asset {
	return a.downstream
}

func (a *Asset) GetFullDownstream() []*Asset {
	downstream := make([]*Asset, 0)
	for _, asset := range a.downstream {
		downstream = append(downstream, asset)
		downstream = append(downstream, asset.GetFullDownstream()...)
	}

	return lo.UniqBy(downstream, func(a *Asset) string { return a.Name })
}

// CheckedDataset is the output the asset's column and custom checks run against.
func (a *Asset) CheckedDataset() string {
	if len(a.Outputs) == 0 {
		return ""
	}
	return a.Outputs[0]
}

func (a *Asset) HasTag(tag string) bool {
	return slices.Contains(a.Tags, tag)
}

func (a *Asset) GetColumnWithName(name string) *Column {
	for i := range a.Columns {
		if a.Columns[i].Name == name {
			return &a.Columns[i]
		}
	}

	return nil
}

type Pipeline struct {
	Name   string   `json:"name"`
	Assets []*Asset `json:"assets"`

	tasksByName map[string]*Asset
	producers   map[string]*Asset
}

// New builds a pipeline and wires the upstream relationships between its assets: an asset
// depends on the asset producing each of its inputs.
func New(name string, assets ...*Asset) (*Pipeline, error) {
	p := &Pipeline{Name: name, Assets: assets}
	if err := p.wire(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Pipeline) wire() error {
	p.tasksByName = make(map[string]*Asset, len(p.Assets))
	p.producers = make(map[string]*Asset)
	for _, asset := range p.Assets {
		if _, ok := p.tasksByName[asset.Name]; ok {
			return errors.Errorf("asset '%s' is defined more than once", asset.Name)
		}
		p.tasksByName[asset.Name] = asset

		for _, out := range asset.Outputs {
			if other, ok := p.producers[out]; ok {
				return errors.Errorf("dataset '%s' is produced by both '%s' and '%s'", out, other.Name, asset.Name)
			}
			p.producers[out] = asset
		}
	}

	for _, asset := range p.Assets {
		asset.upstream = nil
		asset.downstream = nil
		asset.Upstreams = nil
	}
	for _, asset := range p.Assets {
		seen := make(map[string]bool)
		for _, in := range asset.Inputs {
			producer, ok := p.producers[in]
			if !ok || seen[producer.Name] {
				continue
			}
			seen[producer.Name] = true
			asset.AddUpstream(producer)
			producer.AddDownstream(asset)
		}
	}

	return nil
}

func (p *Pipeline) GetAssetByName(assetName string) *Asset {
	asset, ok := p.tasksByName[assetName]
	if !ok {
		return nil
	}

	return asset
}

// ProducerOf returns the asset writing the dataset, nil for source datasets.
func (p *Pipeline) ProducerOf(dataset string) *Asset {
	return p.producers[dataset]
}

func (p *Pipeline) GetAssetsByTag(tag string) []*Asset {
	return lo.Filter(p.Assets, func(a *Asset, _ int) bool { return a.HasTag(tag) })
}

// SourceDatasets lists the inputs no asset produces, sorted. They must come from the catalog.
func (p *Pipeline) SourceDatasets() []string {
	sources := make([]string, 0)
	for _, asset := range p.Assets {
		for _, in := range asset.Inputs {
			if _, ok := p.producers[in]; !ok {
				sources = append(sources, in)
			}
		}
	}
	sources = lo.Uniq(sources)
	sort.Strings(sources)

	return sources
}

// Validate fails on source datasets the catalog does not know and on dependency cycles.
func (p *Pipeline) Validate(isKnownSource func(dataset string) bool) error {
	if isKnownSource != nil {
		unknown := lo.Filter(p.SourceDatasets(), func(d string, _ int) bool { return !isKnownSource(d) })
		if len(unknown) > 0 {
			return errors.Errorf("datasets [%s] are neither produced by an asset nor declared in the catalog", strings.Join(unknown, ", "))
		}
	}

	for _, asset := range p.Assets {
		if asset.Transform == nil && asset.Type != AssetTypeEmpty {
			return errors.Errorf("asset '%s' has no transform", asset.Name)
		}
	}

	return p.ensureNoCycles()
}

func (p *Pipeline) graph() (*graph.Mutable, map[string]int) {
	index := make(map[string]int, len(p.Assets))
	for i, asset := range p.Assets {
		index[asset.Name] = i
	}

	g := graph.New(len(p.Assets))
	for _, asset := range p.Assets {
		for _, up := range asset.upstream {
			g.Add(index[up.Name], index[asset.Name])
		}
	}

	return g, index
}

func (p *Pipeline) ensureNoCycles() error {
	g, _ := p.graph()
	for _, cycle := range graph.StrongComponents(g) {
		if len(cycle) == 1 && !g.Edge(cycle[0], cycle[0]) {
			continue
		}

		names := make([]string, 0, len(cycle))
		for _, i := range cycle {
			names = append(names, p.Assets[i].Name)
		}
		sort.Strings(names)

		return errors.Errorf("pipeline contains a cycle between assets [%s]", strings.Join(names, ", "))
	}

	return nil
}

// TopologicalOrder returns the assets so that every asset comes after all of its upstreams.
func (p *Pipeline) TopologicalOrder() ([]*Asset, error) {
	g, _ := p.graph()
	order, ok := graph.TopSort(g)
	if !ok {
		if err := p.ensureNoCycles(); err != nil {
			return nil, err
		}
		return nil, errors.New("pipeline cannot be ordered")
	}

	assets := make([]*Asset, len(order))
	for i, idx := range order {
		assets[i] = p.Assets[idx]
	}

	return assets, nil
}
