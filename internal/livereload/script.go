package livereload

// ClientScript is served at /livereload.js. It connects back to the host it
// was loaded from, performs the hello handshake and reloads the page (or only
// stylesheets for css changes) on reload commands.
const ClientScript = `(function() {
    'use strict';

    var script = document.currentScript;
    var origin = script ? new URL(script.src) : location;
    var reconnectDelay = 1000;
    var maxReconnectDelay = 30000;

    function connect() {
        var protocol = origin.protocol === 'https:' ? 'wss:' : 'ws:';
        var ws = new WebSocket(protocol + '//' + origin.host + '/livereload');

        ws.onopen = function() {
            reconnectDelay = 1000;
            ws.send(JSON.stringify({command: 'hello', protocols: ['` + Protocol7 + `']}));
            ws.send(JSON.stringify({command: 'info', url: location.href, plugins: {}}));
        };

        ws.onmessage = function(e) {
            var msg;
            try {
                msg = JSON.parse(e.data);
            } catch (err) {
                return;
            }
            if (msg.command !== 'reload') {
                return;
            }
            var path = msg.path || '';
            if (path.indexOf('css:') === 0 || /\.css$/.test(path)) {
                reloadCSS();
            } else {
                location.reload();
            }
        };

        ws.onclose = function() {
            setTimeout(function() {
                reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
                connect();
            }, reconnectDelay);
        };

        ws.onerror = function() {
            ws.close();
        };
    }

    function reloadCSS() {
        var links = document.querySelectorAll('link[rel="stylesheet"]');
        links.forEach(function(link) {
            var url = new URL(link.href);
            url.searchParams.set('livereload', Date.now());
            link.href = url.toString();
        });
    }

    connect();
})();
`
