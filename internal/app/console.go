package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hitoshi/uninavi/internal/nav"
	"github.com/hitoshi/uninavi/internal/screen"
)

// errQuit はquitコマンドによる終了を表す。
var errQuit = errors.New("quit")

// RunConsole は標準入力からの対話コマンドでシェルと画面を操作する。
// 入力の終端（EOF）では静かに戻り、quitコマンドの場合のみerrQuitを返す。
// 呼び出し元はerrQuitをシャットダウン要求として扱う。
func (a *App) RunConsole(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "uninavi console — helpでコマンド一覧")

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := a.dispatch(ctx, out, line); err != nil {
			if errors.Is(err, errQuit) {
				return errQuit
			}
			fmt.Fprintln(out, "エラー:", err)
		}
	}
	return scanner.Err()
}

// dispatch は1行のコマンドを解釈して実行する。
func (a *App) dispatch(ctx context.Context, out io.Writer, line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(line, cmd))

	switch cmd {
	case "help":
		printHelp(out)
	case "quit", "exit":
		return errQuit

	case "tab":
		if len(args) != 1 {
			return fmt.Errorf("使い方: tab home|community|settings")
		}
		tab := nav.Tab(args[0])
		switch tab {
		case nav.TabHome, nav.TabCommunity, nav.TabSettings:
			a.SwitchTab(tab)
			fmt.Fprintf(out, "タブ: %s\n", tab)
		default:
			return fmt.Errorf("不明なタブ: %s", args[0])
		}
	case "back":
		a.Back()
		fmt.Fprintf(out, "戻りました: %T\n", a.shell.Current())

	case "city", "type":
		if len(args) != 1 {
			return fmt.Errorf("使い方: %s <値>", cmd)
		}
		if cmd == "city" {
			a.home.ToggleCity(ctx, args[0])
		} else {
			a.home.ToggleType(ctx, args[0])
		}
		a.printCurrentList(out)
	case "sort":
		if len(args) != 1 {
			return fmt.Errorf("使い方: sort <項目>")
		}
		// アクティブなタブに応じて対象の画面を選ぶ
		if a.shell.ActiveTab() == nav.TabCommunity {
			a.community.ToggleSort(ctx, args[0])
		} else {
			a.home.ToggleSort(ctx, args[0])
		}
		a.printCurrentList(out)
	case "tag":
		id, err := atoiArg(args, "使い方: tag <タグID>")
		if err != nil {
			return err
		}
		a.community.ToggleTag(ctx, id)
		a.printCurrentList(out)
	case "search":
		a.community.SetSearch(rest)
		a.printCurrentList(out)
	case "list":
		a.printCurrentList(out)

	case "open":
		id, err := atoiArg(args, "使い方: open <大学ID>")
		if err != nil {
			return err
		}
		d := a.OpenUniversity(ctx, id)
		printUniversityDetail(out, d)
	case "post":
		id, err := atoiArg(args, "使い方: post <投稿ID>")
		if err != nil {
			return err
		}
		d := a.OpenPost(ctx, id)
		printPostDetail(out, d)

	case "reply":
		id, err := atoiArg(args, "使い方: reply <コメントID>")
		if err != nil {
			return err
		}
		d := a.currentPostDetail()
		if d == nil {
			return fmt.Errorf("投稿詳細を開いていません")
		}
		if err := d.ReplyTo(id); err != nil {
			return err
		}
		fmt.Fprintf(out, "コメント%dへ返信します\n", id)
	case "comment":
		if rest == "" {
			return fmt.Errorf("使い方: comment <本文>")
		}
		d := a.currentPostDetail()
		if d == nil {
			return fmt.Errorf("投稿詳細を開いていません")
		}
		d.SetDraft(rest)
		if err := d.SubmitComment(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "コメントを投稿しました")
		printPostDetail(out, d)

	case "new":
		a.OpenCreatePost()
		fmt.Fprintln(out, "投稿作成画面: title / content / tag+ / submit")
	case "title":
		a.OpenCreatePost().SetTitle(rest)
	case "content":
		a.OpenCreatePost().SetContent(rest)
	case "tag+":
		if len(args) != 1 {
			return fmt.Errorf("使い方: tag+ <タグ名>")
		}
		a.OpenCreatePost().AddTag(args[0])
	case "tag-":
		if len(args) != 1 {
			return fmt.Errorf("使い方: tag- <タグ名>")
		}
		a.OpenCreatePost().RemoveTag(args[0])
	case "submit":
		post, err := a.OpenCreatePost().Submit(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "投稿しました: #%d %s\n", post.ID, post.Title)
		a.Back()

	case "whoami":
		snap := a.session.Snapshot()
		if snap.User == nil {
			fmt.Fprintln(out, "未ログイン")
		} else {
			fmt.Fprintf(out, "%s (id=%d)\n", snap.User.Name, snap.User.ID)
		}
	case "logout":
		a.session.Logout(ctx)
		fmt.Fprintln(out, "ログアウトしました")

	default:
		return fmt.Errorf("不明なコマンド: %s（helpで一覧）", cmd)
	}
	return nil
}

// currentPostDetail は表示中の投稿詳細コントローラを返す。未表示ならnil。
func (a *App) currentPostDetail() *screen.PostDetail {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.postDetail
}

// printCurrentList はアクティブなタブの一覧を表示する。
func (a *App) printCurrentList(out io.Writer) {
	if a.shell.ActiveTab() == nav.TabCommunity {
		for _, p := range a.community.VisiblePosts() {
			fmt.Fprintf(out, "#%d %s  (いいね %d)  %s\n",
				p.ID, p.Title, p.LikesCount, a.community.Excerpt(p, 40))
		}
		return
	}
	for _, u := range a.home.Universities() {
		fmt.Fprintf(out, "#%d %s  (QS %d)\n", u.ID, u.NameJP, u.QSRank)
	}
}

func printUniversityDetail(out io.Writer, d *screen.UniversityDetail) {
	u := d.University()
	if u == nil {
		fmt.Fprintln(out, "大学情報を取得できませんでした")
		return
	}
	fmt.Fprintf(out, "%s (%s)  QSランク %d\n", u.NameJP, u.NameEN, u.QSRank)
}

func printPostDetail(out io.Writer, d *screen.PostDetail) {
	p := d.Post()
	if p == nil {
		fmt.Fprintln(out, "投稿を取得できませんでした")
		return
	}
	fmt.Fprintf(out, "#%d %s  (いいね %d / コメント %d)\n",
		p.ID, p.Title, p.LikesCount, p.CommentsCount)
	for _, c := range p.Comments {
		fmt.Fprintf(out, "  [%d] %s\n", c.ID, c.Content)
		for _, r := range c.Comments {
			fmt.Fprintf(out, "    └ [%d] %s\n", r.ID, r.Content)
		}
	}
}

func printHelp(out io.Writer) {
	fmt.Fprint(out, `tab home|community|settings  タブ切り替え
list                         一覧を表示
city seoul|other             所在地フィルタ切り替え
type national|private        設立区分フィルタ切り替え
sort <項目>                  ソート切り替え (name/rank/favourites, time/likes/views)
tag <タグID>                 タグフィルタ切り替え
search <語>                  一覧の絞り込み（空で解除）
open <大学ID>                大学詳細
post <投稿ID>                投稿詳細
reply <コメントID>           返信対象を設定
comment <本文>               コメントを投稿
new / title / content / tag+ / tag- / submit   投稿作成
back                         タブのルートへ戻る
whoami / logout / quit
`)
}

func atoiArg(args []string, usage string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New(usage)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, errors.New(usage)
	}
	return id, nil
}
