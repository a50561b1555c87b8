// Package store は全エンティティスライスを 1 つの状態コンテナへ合成します。
// 消費側はこの Store を唯一の読み取り・操作の入口として扱います。
package store

import (
	"github.com/ogurasousui/onboard-sync/internal/core/activity"
	"github.com/ogurasousui/onboard-sync/internal/core/instance"
	"github.com/ogurasousui/onboard-sync/internal/core/role"
	"github.com/ogurasousui/onboard-sync/internal/core/step"
	"github.com/ogurasousui/onboard-sync/internal/core/suggestion"
	"github.com/ogurasousui/onboard-sync/internal/core/user"
)

// Gateways は各エンティティファミリーのゲートウェイ束です。通常は 1 つの
// アダプタ実装がすべてを満たしますが、テストでは個別に差し替えられます。
type Gateways struct {
	Instances   instance.Gateway
	Steps       step.Gateway
	Users       user.Gateway
	Activities  activity.Gateway
	Suggestions suggestion.Gateway
}

// Store は全スライスを所有する中央ストアです。購読の参照カウントや購読
// 解除ハンドルは各スライスが内包するコーディネーターに閉じており、パッケージ
// 変数として漏れ出すことはありません。
type Store struct {
	Instances   *instance.Slice
	Steps       *step.Slice
	Users       *user.Slice
	Activities  *activity.Slice
	Suggestions *suggestion.Slice
}

// New は Store を生成します。
func New(gw Gateways) *Store {
	instances := instance.NewSlice(gw.Instances)
	return &Store{
		Instances:   instances,
		Steps:       step.NewSlice(gw.Steps, instances),
		Users:       user.NewSlice(gw.Users),
		Activities:  activity.NewSlice(gw.Activities),
		Suggestions: suggestion.NewSlice(gw.Suggestions),
	}
}

// SubscribeForRole は役割に応じたスライス群の購読を開始し、まとめて解放する
// 関数を返します。インスタンスと監査ログは全役割が購読します。ユーザーと
// 提案はマネージャー権限を持つ役割だけが購読します。
func (s *Store) SubscribeForRole(r role.Role) (release func()) {
	releases := []func(){
		s.Instances.Subscribe(),
		s.Activities.Subscribe(),
	}
	if r.HasManagerAccess() {
		releases = append(releases,
			s.Users.Subscribe(),
			s.Suggestions.Subscribe(),
		)
	}
	return func() {
		for _, rel := range releases {
			rel()
		}
	}
}

// Reset は全スライスの購読と状態を強制的に初期化します。テストの後始末や
// サインアウト時に利用します。
func (s *Store) Reset() {
	s.Instances.Reset()
	s.Steps.Reset()
	s.Users.Reset()
	s.Activities.Reset()
	s.Suggestions.Reset()
}
