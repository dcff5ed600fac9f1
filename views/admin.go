package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// AdminLogin renders the login form.
func AdminLogin(showError bool, csrfToken string, data PageData) templ.Component {
	form := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(ctx, w)
		h.raw(`<section class="admin-login"><h1>Admin</h1>`)
		if showError {
			h.raw(`<p class="error">Invalid password.</p>`)
		}
		h.raw(`<form method="post" action="/admin/login/">`)
		csrfField(h, csrfToken)
		h.raw(`<label>Password <input type="password" name="password" required autofocus></label>`)
		h.raw(`<button type="submit">Log in</button></form></section>`)
		return h.err
	})
	return Layout(data, form)
}

// AdminDashboard renders the admin landing page.
func AdminDashboard(d Dashboard, data PageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(ctx, w)
		h.raw(`<section class="admin-dashboard"><h1>Dashboard</h1>`)
		if d.Message != "" {
			h.raw(`<p class="flash">`)
			h.text(d.Message)
			h.raw(`</p>`)
		}

		h.raw(`<h2>Last build</h2>`)
		b := d.LastBuild
		switch {
		case b.Error != "":
			h.raw(`<p class="error">`)
			h.text(b.Error)
			h.raw(`</p>`)
		case b.Finished != "":
			h.raw(`<p>`)
			h.text(strconv.Itoa(b.Pages) + " pages in " + b.Duration + " at " + b.Finished)
			h.raw(`</p>`)
		default:
			h.raw(`<p>No build yet.</p>`)
		}
		h.raw(`<form method="post" action="/admin/rebuild/">`)
		csrfField(h, d.CSRFToken)
		h.raw(`<button type="submit">Rebuild site</button></form>`)

		h.raw(`<h2>Posts</h2><table><thead><tr><th>Slug</th><th>Title</th><th>Published</th><th>Status</th></tr></thead><tbody>`)
		for _, p := range d.Posts {
			status := "live"
			if p.Draft {
				status = "draft"
			}
			h.raw(`<tr><td><a`)
			h.attr("href", p.Link())
			h.raw(`>`)
			h.text(p.Slug)
			h.raw(`</a></td><td>`)
			h.text(p.Title)
			h.raw(`</td><td>`)
			h.text(p.Published)
			h.raw(`</td><td>`)
			h.text(status)
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)

		if len(d.TopPages) > 0 {
			h.raw(`<h2>Most viewed</h2><ol class="top-pages">`)
			for _, p := range d.TopPages {
				h.raw(`<li><a`)
				h.attr("href", p.Path)
				h.raw(`>`)
				h.text(p.Path)
				h.raw(`</a> `)
				h.text(ViewsLabel(p.Views))
				h.raw(`</li>`)
			}
			h.raw(`</ol>`)
		}

		h.raw(`<form method="post" action="/admin/logout/">`)
		csrfField(h, d.CSRFToken)
		h.raw(`<button type="submit">Log out</button></form></section>`)
		return h.err
	})
	return Layout(data, body)
}

func csrfField(h *htmlWriter, token string) {
	h.raw(`<input type="hidden" name="_csrf"`)
	h.attr("value", token)
	h.raw(`>`)
}
