package roles

import "errors"

//ErrEmojiBound is returned by bind operations when the emoji already maps to
//a different role in the guild.
var ErrEmojiBound = errors.New("emoji is already bound to another role in this guild")

//ErrRoleBound is returned by bind operations when the role already has a
//different emoji bound to it.
var ErrRoleBound = errors.New("role already has an emoji bound to it")

//ErrNotBound is returned when an unbind or rebind names a role with no
//binding in the guild.
var ErrNotBound = errors.New("role has no emoji bound to it in this guild")

//ErrSurfaceUnavailable is returned when the join channel or message could not
//be created or located, for example because the bot's integration role is
//missing.
var ErrSurfaceUnavailable = errors.New("join channel or message could not be created or located")
