package templates

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"
)

// layout wraps body in the shared HTML shell.
func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		_, err := fmt.Fprintf(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>%s</title></head><body>`,
			templ.EscapeString(title))
		if err != nil {
			return err
		}

		if err := body.Render(ctx, w); err != nil {
			return err
		}

		_, err = io.WriteString(w, `</body></html>`)
		return err
	})
}

// IndexPage renders the wiki home: the page list plus the create form.
func IndexPage(data IndexPageData) templ.Component {
	return layout(data.Title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<h1>%s</h1>`, templ.EscapeString(data.Title)); err != nil {
			return err
		}

		if data.BackupURL != "" {
			if _, err := fmt.Fprintf(w,
				`<p class="backup-notice">Backup created: <a href="%s">%s</a></p>`,
				templ.EscapeString(data.BackupURL), templ.EscapeString(data.BackupURL)); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w,
			`<form action="/create" method="post"><input type="text" name="name" placeholder="New page name"><button type="submit">Create</button></form>`)
		if err != nil {
			return err
		}

		if len(data.Pages) == 0 {
			if _, err := io.WriteString(w, `<p>The wiki is currently empty!</p>`); err != nil {
				return err
			}
		} else {
			if _, err := io.WriteString(w, `<ul class="pages">`); err != nil {
				return err
			}
			for _, name := range data.Pages {
				if _, err := fmt.Fprintf(w, `<li><a href="/wiki/%s">%s</a></li>`,
					url.PathEscape(name), templ.EscapeString(name)); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `</ul>`); err != nil {
				return err
			}
		}

		_, err = io.WriteString(w, `<p><a href="/backup">Trigger backup</a></p>`)
		return err
	}))
}

// WikiPage renders a single page: the converted content plus the edit form.
// The hidden newPage field tells the save handler whether to create or update.
func WikiPage(data WikiPageData) templ.Component {
	return layout(data.Title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<h1>%s</h1>`, templ.EscapeString(data.Title)); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<div class="content">`); err != nil {
			return err
		}
		if err := RawHTML(data.HTML).Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</div>`); err != nil {
			return err
		}

		newPage := "no"
		if data.NewPage {
			newPage = "yes"
		}

		_, err := fmt.Fprintf(w,
			`<form action="/save" method="post"><input type="hidden" name="title" value="%s"><input type="hidden" name="id" value="%d"><input type="hidden" name="newPage" value="%s"><textarea name="markdown" rows="20" cols="80">%s</textarea><br><button type="submit">Save</button></form>`,
			templ.EscapeString(data.Title), data.ID, newPage, templ.EscapeString(data.RawContent))
		if err != nil {
			return err
		}

		if !data.NewPage {
			if _, err := fmt.Fprintf(w,
				`<form action="/delete" method="post"><input type="hidden" name="id" value="%d"><button type="submit" class="danger">Delete page</button></form>`,
				data.ID); err != nil {
				return err
			}
		}

		if _, err := io.WriteString(w, `<p><a href="/">Home</a></p>`); err != nil {
			return err
		}

		if data.Timestamp != "" {
			if _, err := fmt.Fprintf(w, `<footer>Rendered at %s</footer>`, templ.EscapeString(data.Timestamp)); err != nil {
				return err
			}
		}

		return nil
	}))
}

// ErrorPage renders a failure view with the status label and message.
func ErrorPage(data ErrorPageData) templ.Component {
	title := data.StatusLabel + " • Markwiki"
	return layout(title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<h1>%s</h1><p>%s</p><p><a href="/">Back to the wiki</a></p>`,
			templ.EscapeString(data.StatusLabel), templ.EscapeString(data.Message))
		return err
	}))
}
