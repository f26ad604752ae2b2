package browser

import (
	"context"

	"github.com/go-rod/rod"

	"github.com/ayusman/nritya/internal/dispatch"
)

// element adapts a Rod element to dispatch.Element. Every call goes through
// the page's JS context; nothing is cached.
type element struct {
	el   *rod.Element
	page *Page
}

func (e *element) Tag(ctx context.Context) (string, error) {
	res, err := e.el.Context(ctx).Eval(tagJS)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *element) Parent(ctx context.Context) (dispatch.Element, error) {
	el := e.el.Context(ctx)

	res, err := el.Evaluate(rod.Eval(parentJS).ByObject())
	if err != nil {
		return nil, err
	}
	if isNull(res) {
		return nil, nil
	}

	parent, err := e.page.page.Context(ctx).ElementFromObject(res)
	if err != nil {
		return nil, err
	}
	return &element{el: parent, page: e.page}, nil
}

func (e *element) Activate(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(activateJS)
	return err
}

func (e *element) HasClickHandler(ctx context.Context) (bool, error) {
	res, err := e.el.Context(ctx).Eval(clickHandlerJS)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (e *element) Cursor(ctx context.Context) (string, error) {
	res, err := e.el.Context(ctx).Eval(cursorJS)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *element) Dispatch(ctx context.Context, ev dispatch.Event) error {
	_, err := e.el.Context(ctx).Eval(eventJS, ev)
	return err
}
