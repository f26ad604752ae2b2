package browser

// Element ids of the injected chrome.
const (
	cursorID  = "nritya-cursor"
	statusID  = "nritya-status"
	previewID = "nritya-preview"
	styleID   = "nritya-pulse-style"
)

// attachJS injects the pseudo-cursor and optional preview image; statusJS
// owns the status badge. Every injected node ignores pointer events so
// hit-testing sees the page underneath. Returns false when the chrome was
// already present.
const attachJS = `(ids, previewURL) => {
	if (document.getElementById(ids.cursor)) return false;

	const style = document.createElement('style');
	style.id = ids.style;
	style.textContent = '@keyframes nrityaPulse { 0% { transform: scale(0.5); opacity: 1; } 100% { transform: scale(2); opacity: 0; } }';
	document.head.appendChild(style);

	if (previewURL) {
		const img = document.createElement('img');
		img.id = ids.preview;
		img.src = previewURL;
		Object.assign(img.style, {
			position: 'fixed', bottom: '10px', left: '10px', zIndex: '9999999',
			width: '320px', height: '240px', border: '2px solid white',
			pointerEvents: 'none',
		});
		document.body.appendChild(img);
	}

	const cursor = document.createElement('div');
	cursor.id = ids.cursor;
	Object.assign(cursor.style, {
		position: 'fixed', left: '0px', top: '0px', width: '20px', height: '20px',
		borderRadius: '50%', backgroundColor: 'rgba(0, 100, 255, 0.7)',
		border: '2px solid white', zIndex: '10000000', pointerEvents: 'none',
		transform: 'translate(-50%, -50%)', boxShadow: '0 0 10px rgba(0, 100, 255, 0.7)',
	});
	document.body.appendChild(cursor);
	return true;
}`

// detachJS removes everything attachJS created, including live pulses.
const detachJS = `(ids) => {
	for (const id of [ids.cursor, ids.status, ids.preview, ids.style]) {
		const el = document.getElementById(id);
		if (el) el.remove();
	}
	document.querySelectorAll('[data-nritya-pulse]').forEach(el => el.remove());
}`

const attachedJS = `(ids) => !!document.getElementById(ids.cursor)`

// statusJS creates the status badge on first use. The badge outlives a
// detach when a status is posted afterwards, so setup errors stay visible.
const statusJS = `(ids, text) => {
	let el = document.getElementById(ids.status);
	if (!el) {
		el = document.createElement('div');
		el.id = ids.status;
		Object.assign(el.style, {
			position: 'fixed', top: '10px', right: '10px', zIndex: '9999',
			background: 'rgba(0,0,0,0.5)', padding: '5px', borderRadius: '5px',
			color: 'white', pointerEvents: 'none', font: '12px sans-serif',
		});
		document.body.appendChild(el);
	}
	el.textContent = text;
}`

const moveCursorJS = `(ids, x, y, clickable) => {
	const c = document.getElementById(ids.cursor);
	if (!c) return;
	c.style.left = x + 'px';
	c.style.top = y + 'px';
	const colour = clickable ? 'rgba(0, 255, 0, 0.7)' : 'rgba(0, 100, 255, 0.7)';
	c.style.backgroundColor = colour;
	c.style.boxShadow = '0 0 10px ' + colour;
}`

const pulseJS = `(x, y, ms) => {
	const p = document.createElement('div');
	p.dataset.nrityaPulse = '1';
	Object.assign(p.style, {
		position: 'fixed', left: (x - 25) + 'px', top: (y - 25) + 'px',
		width: '50px', height: '50px', borderRadius: '50%',
		backgroundColor: 'rgba(255, 255, 0, 0.5)', zIndex: '9999998',
		pointerEvents: 'none', animation: 'nrityaPulse ' + (ms / 1000) + 's ease-out',
	});
	document.body.appendChild(p);
	setTimeout(() => p.remove(), ms);
}`

const viewportJS = `() => ({ w: window.innerWidth, h: window.innerHeight })`

const elementAtJS = `(x, y) => document.elementFromPoint(x, y)`

const nextFrameJS = `() => new Promise(resolve => requestAnimationFrame(t => resolve(t)))`

const tagJS = `function() { return (this.tagName || '').toLowerCase() }`

const parentJS = `function() { return this.parentElement }`

const activateJS = `function() {
	if (typeof this.click === 'function') {
		this.click();
	} else {
		this.dispatchEvent(new MouseEvent('click', { bubbles: true, cancelable: true, view: window }));
	}
}`

const clickHandlerJS = `function() { return typeof this.onclick === 'function' }`

const cursorJS = `function() { return getComputedStyle(this).cursor }`

// eventJS builds and dispatches one synthetic event on this. Touch events
// throw where TouchEvent or Touch cannot be constructed.
const eventJS = `function(ev) {
	const x = ev.point.x, y = ev.point.y;
	const init = {
		view: window, bubbles: true, cancelable: true,
		clientX: x, clientY: y, screenX: x, screenY: y,
		button: ev.button, buttons: ev.buttons,
	};
	let e;
	if (ev.kind === 'touch') {
		const target = document.elementFromPoint(x, y) || document.body;
		const touch = new Touch({
			identifier: ev.touchId, target: target,
			clientX: x, clientY: y, screenX: x, screenY: y, pageX: x, pageY: y,
		});
		e = new TouchEvent(ev.type, {
			bubbles: true, cancelable: true, view: window,
			touches: [touch], targetTouches: [touch], changedTouches: [touch],
		});
	} else if (ev.kind === 'pointer' && typeof PointerEvent === 'function') {
		e = new PointerEvent(ev.type, Object.assign({ pointerId: 1, pointerType: 'mouse', isPrimary: true }, init));
	} else {
		e = new MouseEvent(ev.type, init);
	}
	this.dispatchEvent(e);
}`

// globalEventJS applies eventJS to document or window.
const globalEventJS = `(name, ev) => (` + eventJS + `).call(name === 'document' ? document : window, ev)`
