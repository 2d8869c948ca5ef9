// Package query は一覧画面のフィルタ・ソート状態を管理し、
// バックエンドのクエリパラメータ形式へ変換する。
// 純粋な状態変換であり、いかなる遷移でもエラーを返さず、
// 常に有効なクエリオブジェクトを生成する。
package query

// SortState はソート項目の状態を表す。
type SortState string

const (
	// SortNone はソート未選択を示す。
	SortNone SortState = "none"
	// SortAsc は昇順ソートを示す。
	SortAsc SortState = "asc"
	// SortDesc は降順ソートを示す。
	SortDesc SortState = "desc"
)

// Params は画面からAPIクライアントへ渡すフラットなクエリパラメータを表す。
// 非アクティブなフィルタのキーは含まれない（空値では送らない）。
// sort キーは常に含まれる。
type Params map[string]string

// Listener はクエリパラメータの変更通知を受け取るコールバック。
type Listener func(Params)

// option は選択値からバックエンドパラメータ名・値への対応を表す。
type option struct {
	param string
	value string
}

// group はカテゴリフィルタのグループを表す。
// 同時にアクティブになれる選択値はグループ内で最大1つ。
// options がnilの場合は動的グループとして扱い、
// 選択値をそのまま dynamicParam の値として送出する（タグIDなど）。
type group struct {
	selected     string
	options      map[string]option
	dynamicParam string
}

// Controller はフィルタ・ソートの状態機械。
// UIイベントループから同期的に呼び出される前提で、内部ロックは持たない。
type Controller struct {
	groups      map[string]*group
	sorts       map[string]SortState
	sortColumns map[string]string
	defaultSort string
	listener    Listener
}

// NewUniversityFilter は大学一覧画面用のコントローラを生成する。
// フィルタ: city ∈ {seoul, other} → is_seoul、type ∈ {national, private} → ownership_type。
// ソート: name → name_jp_sort、rank → qs_rank、favourites → favourites_count。
// 初期状態は rank 昇順、デフォルトソートは qs_rank。
func NewUniversityFilter() *Controller {
	return &Controller{
		groups: map[string]*group{
			"city": {
				options: map[string]option{
					"seoul": {param: "is_seoul", value: "1"},
					"other": {param: "is_seoul", value: "0"},
				},
			},
			"type": {
				options: map[string]option{
					"national": {param: "ownership_type", value: "national"},
					"private":  {param: "ownership_type", value: "private"},
				},
			},
		},
		sorts: map[string]SortState{
			"name":       SortNone,
			"rank":       SortAsc,
			"favourites": SortNone,
		},
		sortColumns: map[string]string{
			"name":       "name_jp_sort",
			"rank":       "qs_rank",
			"favourites": "favourites_count",
		},
		defaultSort: "qs_rank",
	}
}

// NewCommunityFilter はコミュニティ一覧画面用のコントローラを生成する。
// フィルタ: tag（タグIDをそのまま tags パラメータへ）。
// ソート: time → created_at、likes → likes_count、views → counter.view_count。
// 初期状態は time 降順（最新順）、デフォルトソートは -created_at。
func NewCommunityFilter() *Controller {
	return &Controller{
		groups: map[string]*group{
			"tag": {dynamicParam: "tags"},
		},
		sorts: map[string]SortState{
			"time":  SortDesc,
			"likes": SortNone,
			"views": SortNone,
		},
		sortColumns: map[string]string{
			"time":  "created_at",
			"likes": "likes_count",
			"views": "counter.view_count",
		},
		defaultSort: "-created_at",
	}
}

// Subscribe は変更通知リスナーを登録する。
// 初回マウント時の同期のため、登録時点の状態で直ちに1回通知する。
func (c *Controller) Subscribe(fn Listener) {
	c.listener = fn
	c.emit()
}

// ToggleFilter はカテゴリフィルタの選択を切り替える。
// すでにアクティブな値を再選択した場合はグループを「すべて」に戻す。
// 未知のグループ名は無視する。
func (c *Controller) ToggleFilter(groupName, value string) {
	g, ok := c.groups[groupName]
	if !ok {
		return
	}
	// 静的グループでは定義済みの選択値のみ受け付ける
	if g.options != nil {
		if _, ok := g.options[value]; !ok {
			return
		}
	}

	if g.selected == value {
		g.selected = ""
	} else {
		g.selected = value
	}
	c.emit()
}

// ToggleSort はソート項目の状態を none → asc → desc → none の順に遷移させる。
// いずれかの項目をアクティブにすると、他の項目は直ちに none に戻る
// （同時にアクティブなソート項目は最大1つ）。未知の項目は無視する。
func (c *Controller) ToggleSort(field string) {
	current, ok := c.sorts[field]
	if !ok {
		return
	}

	var next SortState
	switch current {
	case SortNone:
		next = SortAsc
	case SortAsc:
		next = SortDesc
	default:
		next = SortNone
	}

	for f := range c.sorts {
		c.sorts[f] = SortNone
	}
	c.sorts[field] = next
	c.emit()
}

// Params は現在の状態をクエリパラメータへ変換して返す。
// アクティブなソート項目があればその列名（降順はマイナス接頭辞付き）、
// なければコンポーネント固有のデフォルトソートを必ず含める。
func (c *Controller) Params() Params {
	p := Params{}

	for _, g := range c.groups {
		if g.selected == "" {
			continue
		}
		if g.options != nil {
			opt := g.options[g.selected]
			p[opt.param] = opt.value
		} else {
			p[g.dynamicParam] = g.selected
		}
	}

	sort := c.defaultSort
	for field, state := range c.sorts {
		if state == SortNone {
			continue
		}
		column := c.sortColumns[field]
		if state == SortDesc {
			sort = "-" + column
		} else {
			sort = column
		}
		break
	}
	p["sort"] = sort

	return p
}

// Selected は指定グループのアクティブな選択値を返す。未選択は空文字列。
func (c *Controller) Selected(groupName string) string {
	g, ok := c.groups[groupName]
	if !ok {
		return ""
	}
	return g.selected
}

// SortStateOf は指定ソート項目の現在状態を返す。未知の項目は none。
func (c *Controller) SortStateOf(field string) SortState {
	s, ok := c.sorts[field]
	if !ok {
		return SortNone
	}
	return s
}

func (c *Controller) emit() {
	if c.listener == nil {
		return
	}
	c.listener(c.Params())
}
